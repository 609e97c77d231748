package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/edgewise-labs/tradebook/internal/config"
	"github.com/edgewise-labs/tradebook/internal/models"
	"github.com/edgewise-labs/tradebook/internal/statement"
	"github.com/edgewise-labs/tradebook/internal/xe"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(models.Account{}, models.Trade{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testServices(t *testing.T) (*AccountService, *IngestService, *ReportService) {
	t.Helper()
	db := testDB(t)
	log := zap.NewNop()
	conf := &config.Config{}
	accountService := NewAccountService(db, log)
	ingestService := NewIngestService(db, log, conf, accountService, nil)
	reportService := NewReportService(db, log, accountService)
	return accountService, ingestService, reportService
}

func createAccount(t *testing.T, svc *AccountService, owner string, kind models.SourceKind) *models.Account {
	t.Helper()
	account, err := svc.Create(context.Background(), owner, CreateAccountInput{
		Name:       "test account",
		SourceKind: kind,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

// mt4Fixture renders one closed EURUSD row per ticket. The row content is a
// pure function of the ticket, so the same ticket fingerprints identically
// across batches regardless of its position.
func mt4Fixture(tickets ...string) string {
	body := `<html><body><table>
<tr><td>Closed Transactions:</td></tr>
<tr><td>Ticket</td><td>Open Time</td><td>Type</td><td>Size</td><td>Item</td><td>Price</td><td>S / L</td><td>T / P</td><td>Close Time</td><td>Price</td><td>Commission</td><td>Taxes</td><td>Swap</td><td>Profit</td></tr>`
	for _, ticket := range tickets {
		n, _ := strconv.Atoi(ticket)
		hour := 8 + n%10
		body += fmt.Sprintf(`
<tr><td>%s</td><td>2026.03.02 %02d:30:00</td><td>buy</td><td>1.00</td><td>eurusd</td><td>1.1000</td><td>0.00</td><td>0.00</td><td>2026.03.02 %02d:30:00</td><td>1.1050</td><td>0.00</td><td>0.00</td><td>0.00</td><td>500.00</td></tr>`,
			ticket, hour, hour+1)
	}
	body += `
<tr><td>Open Trades:</td></tr>
</table></body></html>`
	return body
}

func fixtureRow(t *testing.T, fixture, ticket string) string {
	t.Helper()
	for _, line := range strings.Split(fixture, "\n") {
		if strings.Contains(line, ">"+ticket+"<") {
			return line
		}
	}
	t.Fatalf("no row for ticket %s", ticket)
	return ""
}

func TestMT4FixtureRowsAreStablePerTicket(t *testing.T) {
	// overlap tests rely on the same ticket fingerprinting identically no
	// matter where it appears in a batch
	a := fixtureRow(t, mt4Fixture("1001", "1002"), "1002")
	b := fixtureRow(t, mt4Fixture("1002", "1003", "1004"), "1002")
	if a != b {
		t.Fatalf("row for ticket 1002 differs by batch position:\n%s\n%s", a, b)
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	accountService, ingestService, _ := testServices(t)
	account := createAccount(t, accountService, "owner-1", models.SourceFile)
	ctx := context.Background()

	input := IngestInput{
		AccountID:  account.ID,
		Source:     statement.SourceMT4,
		RawPayload: mt4Fixture("1001", "1002", "1003"),
	}

	first, err := ingestService.Ingest(ctx, "owner-1", input)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.Added != 3 || first.Skipped != 0 || first.Failed != 0 {
		t.Fatalf("first ingest = %+v", first)
	}

	// the exact same payload again: every row is a duplicate
	second, err := ingestService.Ingest(ctx, "owner-1", input)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if second.Added != 0 || second.Skipped != 3 {
		t.Fatalf("second ingest = %+v", second)
	}

	count, err := ingestService.TradeRepo.CountByAccountID(ctx, account.ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("persisted trades = %d, want 3", count)
	}
}

func TestIngestPartialOverlap(t *testing.T) {
	accountService, ingestService, _ := testServices(t)
	account := createAccount(t, accountService, "owner-1", models.SourceFile)
	ctx := context.Background()

	if _, err := ingestService.Ingest(ctx, "owner-1", IngestInput{
		AccountID:  account.ID,
		Source:     statement.SourceMT4,
		RawPayload: mt4Fixture("1001", "1002"),
	}); err != nil {
		t.Fatalf("seed ingest: %v", err)
	}

	result, err := ingestService.Ingest(ctx, "owner-1", IngestInput{
		AccountID:  account.ID,
		Source:     statement.SourceMT4,
		RawPayload: mt4Fixture("1002", "1003", "1004"),
	})
	if err != nil {
		t.Fatalf("overlap ingest: %v", err)
	}
	if result.Added != 2 || result.Skipped != 1 {
		t.Fatalf("overlap ingest = %+v", result)
	}
}

func TestIngestRejectsWrongSourceKind(t *testing.T) {
	accountService, ingestService, _ := testServices(t)
	account := createAccount(t, accountService, "owner-1", models.SourceManual)

	_, err := ingestService.Ingest(context.Background(), "owner-1", IngestInput{
		AccountID:  account.ID,
		Source:     statement.SourceMT4,
		RawPayload: mt4Fixture("1001"),
	})
	if !errors.Is(err, xe.ErrSourceNotAllowed) {
		t.Fatalf("err = %v, want ErrSourceNotAllowed", err)
	}
}

func TestIngestRejectsForeignAccount(t *testing.T) {
	accountService, ingestService, _ := testServices(t)
	account := createAccount(t, accountService, "owner-1", models.SourceFile)

	_, err := ingestService.Ingest(context.Background(), "owner-2", IngestInput{
		AccountID:  account.ID,
		Source:     statement.SourceMT4,
		RawPayload: mt4Fixture("1001"),
	})
	if !errors.Is(err, xe.ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestIngestNoValidTrades(t *testing.T) {
	accountService, ingestService, _ := testServices(t)
	account := createAccount(t, accountService, "owner-1", models.SourceFile)

	_, err := ingestService.Ingest(context.Background(), "owner-1", IngestInput{
		AccountID:  account.ID,
		Source:     statement.SourceMT4,
		RawPayload: mt4Fixture(),
	})
	if !errors.Is(err, xe.ErrNoValidTrades) {
		t.Fatalf("err = %v, want ErrNoValidTrades", err)
	}
}

func TestIngestManualEntry(t *testing.T) {
	accountService, ingestService, reportService := testServices(t)
	account := createAccount(t, accountService, "owner-1", models.SourceManual)
	ctx := context.Background()

	close := 1.1050
	closed := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	result, err := ingestService.Ingest(ctx, "owner-1", IngestInput{
		AccountID: account.ID,
		Source:    statement.SourceManual,
		Manual: &statement.ManualEntry{
			Symbol:      "EURUSD",
			Market:      statement.MarketForex,
			Side:        "long",
			Quantity:    1,
			EntryPrice:  1.1000,
			ClosePrice:  &close,
			OpenedAt:    time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
			ClosedAt:    &closed,
			StrategyTag: "breakout",
		},
	})
	if err != nil {
		t.Fatalf("manual ingest: %v", err)
	}
	if result.Added != 1 {
		t.Fatalf("result = %+v", result)
	}

	trades, err := reportService.Trades(ctx, "owner-1", account.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 1 || trades[0].Profit != 500 || trades[0].StrategyTag != "breakout" {
		t.Fatalf("persisted trade = %+v", trades)
	}
}

func TestIngestTradesSyncPath(t *testing.T) {
	accountService, ingestService, _ := testServices(t)
	account := createAccount(t, accountService, "owner-1", models.SourceSync)
	ctx := context.Background()

	opened := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	closed := opened.Add(time.Hour)
	closePrice := 1.1050
	valid := models.Trade{
		Ticket: "5001", Symbol: "EURUSD", Side: models.SideLong, Size: 1,
		OpenedAt: opened, ClosedAt: &closed,
		OpenPrice: 1.1000, ClosePrice: &closePrice, Profit: 500,
	}
	invalid := valid
	invalid.Symbol = ""

	result, err := ingestService.IngestTrades(ctx, account, []models.Trade{valid, invalid})
	if err != nil {
		t.Fatalf("sync ingest: %v", err)
	}
	if result.Added != 1 || len(result.Warnings) != 1 {
		t.Fatalf("sync ingest = %+v", result)
	}
}

func TestIngestMissingFields(t *testing.T) {
	_, ingestService, _ := testServices(t)

	cases := []IngestInput{
		{},
		{AccountID: "a", Source: statement.SourceMT4},
		{AccountID: "a", Source: statement.SourceManual},
	}
	for i, input := range cases {
		if _, err := ingestService.Ingest(context.Background(), "owner-1", input); !errors.Is(err, xe.ErrMissingFields) {
			t.Errorf("case %d: err = %v, want ErrMissingFields", i, err)
		}
	}
}
