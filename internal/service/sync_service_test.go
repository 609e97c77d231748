package service

import (
	"testing"
	"time"

	"github.com/edgewise-labs/tradebook/internal/models"
	"github.com/edgewise-labs/tradebook/pkg/bridge"
)

func TestMapDeal(t *testing.T) {
	opened := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	closed := opened.Add(2 * time.Hour)

	deal := bridge.Deal{
		Ticket:     "1001",
		Symbol:     "eurusd",
		Type:       "buy",
		Volume:     1,
		OpenTime:   opened.Unix(),
		CloseTime:  closed.Unix(),
		OpenPrice:  1.1000,
		ClosePrice: 1.1050,
		StopLoss:   1.0950,
		Profit:     500,
	}

	trade, ok := mapDeal(deal)
	if !ok {
		t.Fatal("mapDeal rejected a valid deal")
	}
	if trade.Symbol != "EURUSD" || trade.Side != models.SideLong {
		t.Fatalf("trade = %+v", trade)
	}
	if !trade.OpenedAt.Equal(opened) {
		t.Fatalf("OpenedAt = %v, want %v", trade.OpenedAt, opened)
	}
	if trade.ClosedAt == nil || !trade.ClosedAt.Equal(closed) {
		t.Fatalf("ClosedAt = %v", trade.ClosedAt)
	}
	if trade.ClosePrice == nil || *trade.ClosePrice != 1.1050 {
		t.Fatalf("ClosePrice = %v", trade.ClosePrice)
	}
	if trade.StopLoss == nil || *trade.StopLoss != 1.0950 {
		t.Fatalf("StopLoss = %v", trade.StopLoss)
	}
	// zero take profit means unset
	if trade.TakeProfit != nil {
		t.Fatalf("TakeProfit = %v, want nil", trade.TakeProfit)
	}
	if err := trade.Validate(); err != nil {
		t.Fatalf("mapped trade invalid: %v", err)
	}
}

func TestMapDealOpenPosition(t *testing.T) {
	deal := bridge.Deal{
		Ticket:   "1002",
		Symbol:   "GBPUSD",
		Type:     "sell",
		Volume:   0.5,
		OpenTime: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC).Unix(),
	}
	trade, ok := mapDeal(deal)
	if !ok {
		t.Fatal("mapDeal rejected a valid deal")
	}
	if trade.ClosedAt != nil || trade.ClosePrice != nil {
		t.Fatalf("open deal mapped with close fields: %+v", trade)
	}
}

func TestMapDealDropsNonTradeRows(t *testing.T) {
	for _, typ := range []string{"balance", "credit", ""} {
		if _, ok := mapDeal(bridge.Deal{Type: typ}); ok {
			t.Errorf("type %q should be dropped", typ)
		}
	}
}
