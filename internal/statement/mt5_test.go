package statement

import (
	"errors"
	"testing"
)

func mt5Row(openTime, ticket, item, typ, size, openPrice, sl, tp, closeTime, closePrice, commission, swap, profit string) []string {
	return []string{openTime, ticket, item, typ, size, openPrice, sl, tp, closeTime, closePrice, commission, swap, profit}
}

func mt5Statement(dealRows ...[]string) string {
	rows := [][]string{
		{"Trade Report"},
		{"Positions"},
		{"Time", "Position", "Symbol", "Type", "Volume", "Price", "S / L", "T / P", "Time", "Price", "Commission", "Swap", "Profit"},
	}
	rows = append(rows, dealRows...)
	rows = append(rows,
		[]string{"Orders"},
		[]string{"Time", "Order", "Symbol", "Type", "Volume", "Price", "S / L", "T / P", "Time", "State", "Comment"},
	)
	return htmlTable(rows...)
}

func TestParseMT5(t *testing.T) {
	raw := mt5Statement(
		mt5Row("2026-03-02 09:30:00", "2001", "eurusd", "buy", "1", "1.1000", "1.0950", "1.1100", "2026-03-02 11:30:00", "1.1050", "-7", "-0.2", "500.00"),
		mt5Row("2026-03-03 10:00:00", "2002", "usdjpy", "sell", "2", "148.50", "0", "0", "2026-03-03 15:00:00", "148.10", "-14", "0", "540.00"),
	)

	result, err := ParseMT5(raw, Options{})
	if err != nil {
		t.Fatalf("ParseMT5: %v", err)
	}
	if len(result.Trades) != 2 {
		t.Fatalf("trades = %d, want 2: %+v", len(result.Trades), result.Warnings)
	}

	first := result.Trades[0]
	if first.Ticket != "2001" || first.Symbol != "EURUSD" || first.Side != "long" {
		t.Errorf("first trade = %+v", first)
	}
	if first.Profit != 500 {
		t.Errorf("Profit = %v, want 500", first.Profit)
	}
	if first.ClosedAt == nil || first.ClosePrice == nil || *first.ClosePrice != 1.1050 {
		t.Errorf("close fields = %v %v", first.ClosedAt, first.ClosePrice)
	}
}

func TestParseMT5ProfitIsAlwaysLastColumn(t *testing.T) {
	// broker template with an extra fee column before the trailing profit
	long := append(
		mt5Row("2026-03-02 09:30:00", "2001", "eurusd", "buy", "1", "1.1000", "0", "0", "2026-03-02 11:30:00", "1.1050", "-7", "-0.2", "-1.5"),
		"500.00",
	)
	// and a template that drops the optional cost columns entirely
	short := []string{"2026-03-03 10:00:00", "2002", "usdjpy", "sell", "2", "148.50", "0", "0", "2026-03-03 15:00:00", "148.10", "540.00"}

	result, err := ParseMT5(mt5Statement(long, short), Options{})
	if err != nil {
		t.Fatalf("ParseMT5: %v", err)
	}
	if len(result.Trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(result.Trades))
	}
	if result.Trades[0].Profit != 500 {
		t.Fatalf("long row profit = %v, want 500", result.Trades[0].Profit)
	}
	if result.Trades[1].Profit != 540 {
		t.Fatalf("short row profit = %v, want 540", result.Trades[1].Profit)
	}
}

func TestParseMT5LenientNumerics(t *testing.T) {
	raw := mt5Statement(
		mt5Row("2026-03-02 09:30:00", "2001", "eurusd", "buy", "not-a-number", "1.1000", "0", "0", "2026-03-02 11:30:00", "1.1050", "", "", "500.00"),
	)
	result, err := ParseMT5(raw, Options{})
	if err != nil {
		t.Fatalf("ParseMT5: %v", err)
	}
	// malformed size falls back to 0 instead of dropping the row
	if result.Trades[0].Size != 0 {
		t.Fatalf("Size = %v, want 0", result.Trades[0].Size)
	}
}

func TestParseMT5OpenPosition(t *testing.T) {
	raw := mt5Statement(
		mt5Row("2026-03-02 09:30:00", "2001", "eurusd", "buy", "1", "1.1000", "0", "0", "", "", "0", "0", "0"),
	)
	result, err := ParseMT5(raw, Options{})
	if err != nil {
		t.Fatalf("ParseMT5: %v", err)
	}
	trade := result.Trades[0]
	if trade.ClosedAt != nil || trade.ClosePrice != nil {
		t.Fatalf("open position has close fields: %v %v", trade.ClosedAt, trade.ClosePrice)
	}
	if !trade.IsOpen() {
		t.Fatal("IsOpen() = false")
	}
}

func TestParseMT5StopsAtNextSection(t *testing.T) {
	raw := mt5Statement(
		mt5Row("2026-03-02 09:30:00", "2001", "eurusd", "buy", "1", "1.1000", "0", "0", "2026-03-02 11:30:00", "1.1050", "0", "0", "500.00"),
	)
	result, err := ParseMT5(raw, Options{})
	if err != nil {
		t.Fatalf("ParseMT5: %v", err)
	}
	if len(result.Trades) != 1 {
		t.Fatalf("rows beyond the Positions section leaked in: %d trades", len(result.Trades))
	}
}

func TestParseMT5MissingSymbol(t *testing.T) {
	raw := mt5Statement(
		mt5Row("2026-03-02 09:30:00", "2001", "", "buy", "1", "1.1000", "0", "0", "2026-03-02 11:30:00", "1.1050", "0", "0", "500.00"),
		mt5Row("2026-03-03 10:00:00", "2002", "usdjpy", "sell", "2", "148.50", "0", "0", "2026-03-03 15:00:00", "148.10", "-14", "0", "540.00"),
	)
	result, err := ParseMT5(raw, Options{})
	if err != nil {
		t.Fatalf("ParseMT5: %v", err)
	}
	if len(result.Trades) != 1 || len(result.Warnings) != 1 {
		t.Fatalf("trades = %d warnings = %d, want 1/1", len(result.Trades), len(result.Warnings))
	}
}

func TestParseMT5NoPositionsSection(t *testing.T) {
	raw := htmlTable([]string{"Trade Report"}, []string{"Orders"})
	_, err := ParseMT5(raw, Options{})
	if !errors.Is(err, ErrNoClosedTrades) {
		t.Fatalf("err = %v, want ErrNoClosedTrades", err)
	}
}
