package dedupe

import (
	"testing"
	"time"

	"github.com/edgewise-labs/tradebook/internal/models"
)

func trade(ticket string, profit float64) models.Trade {
	opened := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	closed := opened.Add(time.Hour)
	closePrice := 1.1050
	return models.Trade{
		Ticket:     ticket,
		Symbol:     "EURUSD",
		Side:       models.SideLong,
		Size:       1,
		OpenedAt:   opened,
		ClosedAt:   &closed,
		OpenPrice:  1.1000,
		ClosePrice: &closePrice,
		Profit:     profit,
	}
}

func TestDedupeAgainstExisting(t *testing.T) {
	existing := []models.Trade{trade("1", 100)}
	existing[0].Fingerprint = existing[0].ComputeFingerprint()

	incoming := []models.Trade{trade("1", 100), trade("2", -50)}

	unique, duplicates := Dedupe(incoming, existing)
	if len(unique) != 1 || duplicates != 1 {
		t.Fatalf("unique = %d, duplicates = %d, want 1/1", len(unique), duplicates)
	}
	if unique[0].Ticket != "2" {
		t.Fatalf("wrong survivor: %+v", unique[0])
	}
	if unique[0].Fingerprint == "" {
		t.Fatal("survivor fingerprint not populated")
	}
}

func TestDedupeExistingWithoutStoredFingerprint(t *testing.T) {
	// rows persisted before the fingerprint column are matched by
	// recomputation
	existing := []models.Trade{trade("1", 100)}

	unique, duplicates := Dedupe([]models.Trade{trade("1", 100)}, existing)
	if len(unique) != 0 || duplicates != 1 {
		t.Fatalf("unique = %d, duplicates = %d, want 0/1", len(unique), duplicates)
	}
}

func TestDedupeCollapsesIntraBatchDuplicates(t *testing.T) {
	incoming := []models.Trade{trade("1", 100), trade("1", 100), trade("2", -50)}

	unique, duplicates := Dedupe(incoming, nil)
	if len(unique) != 2 || duplicates != 1 {
		t.Fatalf("unique = %d, duplicates = %d, want 2/1", len(unique), duplicates)
	}
}

func TestDedupeKeepsNearMisses(t *testing.T) {
	a := trade("1", 100)
	b := trade("1", 100)
	b.Profit = 100.01 // any canonical field difference means a distinct trade

	unique, duplicates := Dedupe([]models.Trade{a, b}, nil)
	if len(unique) != 2 || duplicates != 0 {
		t.Fatalf("unique = %d, duplicates = %d, want 2/0", len(unique), duplicates)
	}
}

func TestDedupeEmptyBatch(t *testing.T) {
	unique, duplicates := Dedupe(nil, []models.Trade{trade("1", 100)})
	if len(unique) != 0 || duplicates != 0 {
		t.Fatalf("unique = %d, duplicates = %d, want 0/0", len(unique), duplicates)
	}
}
