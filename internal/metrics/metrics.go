// Package metrics computes performance figures over a trade set. Every
// grouping and report surface goes through the same Compute function, so a
// win rate on a per-symbol breakdown can never disagree with the headline
// one.
package metrics

import (
	"math"
	"strconv"
	"time"

	"github.com/edgewise-labs/tradebook/internal/models"
)

// Ratio 可能无定义的比值指标
//
// Division-by-zero resolves to an explicit undefined value, never NaN,
// Infinity or a misleading 0. Renders as JSON null when undefined.
type Ratio struct {
	Value   float64
	Defined bool
}

// DefinedRatio wraps a measured value.
func DefinedRatio(v float64) Ratio {
	return Ratio{Value: v, Defined: true}
}

// UndefinedRatio is the "not available / not applicable" sentinel.
var UndefinedRatio = Ratio{}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(r.Value, 'f', -1, 64)), nil
}

// Summary 同一套公式的唯一实现，所有分组复用
type Summary struct {
	TradeCount int `json:"trade_count"`
	Wins       int `json:"wins"`
	Losses     int `json:"losses"`
	BreakEven  int `json:"break_even"`

	NetPnL      float64 `json:"net_pnl"`
	GrossProfit float64 `json:"gross_profit"`
	GrossLoss   float64 `json:"gross_loss"` // absolute value

	// WinPercentage 胜率（0-100，保留两位小数）
	WinPercentage float64 `json:"win_percentage"`
	// ProfitFactor undefined when there are wins but no losses; 0 when
	// there is neither
	ProfitFactor Ratio `json:"profit_factor"`
	// AvgWin/AvgLoss are averaged separately, never together
	AvgWin  float64 `json:"avg_win"`
	AvgLoss float64 `json:"avg_loss"` // absolute value
	// TradeExpectancy = NetPnL / TradeCount, 0 for an empty set
	TradeExpectancy float64 `json:"trade_expectancy"`
}

// Compute calculates the shared metric set for an arbitrary trade slice.
// Pure function; no knowledge of accounts, sources or storage.
func Compute(trades []models.Trade) Summary {
	s := Summary{TradeCount: len(trades)}
	for i := range trades {
		p := trades[i].Profit
		switch {
		case p > 0:
			s.Wins++
			s.GrossProfit += p
		case p < 0:
			s.Losses++
			s.GrossLoss += -p
		default:
			s.BreakEven++
		}
		s.NetPnL += p
	}

	if s.TradeCount > 0 {
		s.WinPercentage = round2(float64(s.Wins) / float64(s.TradeCount) * 100)
		s.TradeExpectancy = s.NetPnL / float64(s.TradeCount)
	}
	if s.Wins > 0 {
		s.AvgWin = s.GrossProfit / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = s.GrossLoss / float64(s.Losses)
	}

	switch {
	case s.GrossLoss > 0:
		s.ProfitFactor = DefinedRatio(s.GrossProfit / s.GrossLoss)
	case s.GrossProfit > 0:
		// wins without a single loss: the ratio has no denominator
		s.ProfitFactor = UndefinedRatio
	default:
		s.ProfitFactor = DefinedRatio(0)
	}
	return s
}

// HoldTime 平均持仓时长，单位取保证数值≥1的最粗粒度
type HoldTime struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"` // minutes/hours/days
}

// AvgHoldTime averages |closedAt-openedAt| over trades carrying both
// timestamps. Trades missing either timestamp are excluded entirely, not
// treated as zero duration. Returns nil when no trade qualifies.
func AvgHoldTime(trades []models.Trade) *HoldTime {
	var total time.Duration
	count := 0
	for i := range trades {
		t := &trades[i]
		if t.ClosedAt == nil || t.OpenedAt.IsZero() {
			continue
		}
		d := t.ClosedAt.Sub(t.OpenedAt)
		if d < 0 {
			d = -d
		}
		total += d
		count++
	}
	if count == 0 {
		return nil
	}

	minutes := total.Minutes() / float64(count)
	switch {
	case minutes < 60:
		return &HoldTime{Value: round2(minutes), Unit: "minutes"}
	case minutes < 24*60:
		return &HoldTime{Value: round2(minutes / 60), Unit: "hours"}
	default:
		return &HoldTime{Value: round2(minutes / (24 * 60)), Unit: "days"}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
