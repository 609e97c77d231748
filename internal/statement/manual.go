package statement

import (
	"fmt"
	"strings"
	"time"

	"github.com/edgewise-labs/tradebook/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Market 手动录入的市场类别，决定盈亏计算公式
type Market string

const (
	MarketForex  Market = "forex"
	MarketEquity Market = "equity"
	MarketCrypto Market = "crypto"
)

// ManualEntry 手动录入表单
type ManualEntry struct {
	Symbol     string   `json:"symbol" validate:"required"`
	Market     Market   `json:"market" validate:"required,oneof=forex equity crypto"`
	Side       string   `json:"side" validate:"required,oneof=long short buy sell"`
	Quantity   float64  `json:"quantity" validate:"required,gt=0"`
	EntryPrice float64  `json:"entry_price" validate:"required,gt=0"`
	ClosePrice *float64 `json:"close_price,omitempty"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	Target     *float64 `json:"target,omitempty"`
	// LotSize 加密市场的显式合约数量；缺省时按 quantity/entry_price 推算
	LotSize    *float64   `json:"lot_size,omitempty"`
	Commission float64    `json:"commission"`
	Currency   string     `json:"currency"` // 股票账户货币，默认USD
	OpenedAt   time.Time  `json:"opened_at" validate:"required"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`

	StrategyTag string   `json:"strategy_tag"`
	QualityTags []string `json:"quality_tags"`
	MoodBefore  string   `json:"mood_before"`
	MoodDuring  string   `json:"mood_during"`
	MoodAfter   string   `json:"mood_after"`
}

// RateTable 手动盈亏换算用的固定汇率，config可覆盖内置默认值
type RateTable struct {
	QuoteToUSD   map[string]float64
	EquityDivide map[string]float64
}

// Fallback conversion rates. Good enough for journal-scale P&L conversion;
// accounts needing precision configure overrides.
var defaultQuoteToUSD = map[string]float64{
	"USD": 1,
	"JPY": 0.0067,
	"CHF": 1.13,
	"CAD": 0.73,
	"GBP": 1.27,
	"EUR": 1.08,
	"AUD": 0.65,
	"NZD": 0.59,
}

var defaultEquityDivide = map[string]float64{
	"USD": 1,
	"INR": 83,
}

func (rt RateTable) quoteToUSD(currency string) (float64, bool) {
	if rate, ok := rt.QuoteToUSD[currency]; ok {
		return rate, true
	}
	rate, ok := defaultQuoteToUSD[currency]
	return rate, ok
}

func (rt RateTable) equityDivide(currency string) float64 {
	if rate, ok := rt.EquityDivide[currency]; ok && rate > 0 {
		return rate
	}
	if rate, ok := defaultEquityDivide[currency]; ok {
		return rate
	}
	return 1
}

// ParseManual converts a validated manual entry form into one canonical
// trade. Unlike broker statements the profit is computed here, not supplied.
func ParseManual(entry ManualEntry, rates RateTable) (*Result, error) {
	side, ok := models.ParseSide(entry.Side)
	if !ok {
		return nil, fmt.Errorf("invalid side %q", entry.Side)
	}

	trade := models.Trade{
		Symbol:      strings.ToUpper(strings.TrimSpace(entry.Symbol)),
		Side:        side,
		Size:        entry.Quantity,
		OpenedAt:    entry.OpenedAt,
		OpenPrice:   entry.EntryPrice,
		StopLoss:    entry.StopLoss,
		TakeProfit:  entry.Target,
		Commission:  entry.Commission,
		StrategyTag: entry.StrategyTag,
		QualityTags: datatypes.NewJSONSlice(entry.QualityTags),
		MoodBefore:  entry.MoodBefore,
		MoodDuring:  entry.MoodDuring,
		MoodAfter:   entry.MoodAfter,
	}

	result := &Result{}

	if entry.ClosePrice == nil {
		// open/pending: profit is defined as 0 until an exit exists
		trade.Profit = 0
	} else {
		trade.ClosePrice = entry.ClosePrice
		closedAt := entry.OpenedAt
		if entry.ClosedAt != nil {
			closedAt = *entry.ClosedAt
		}
		trade.ClosedAt = &closedAt

		profit, warning := manualProfit(trade.Symbol, entry, rates)
		trade.Profit = profit
		if warning != "" {
			result.warn(0, warning)
		}
	}

	if err := trade.Validate(); err != nil {
		return nil, err
	}
	result.Trades = append(result.Trades, trade)
	return result, nil
}

func manualProfit(symbol string, entry ManualEntry, rates RateTable) (float64, string) {
	switch entry.Market {
	case MarketForex:
		return forexProfit(symbol, entry, rates)
	case MarketEquity:
		return equityProfit(entry, rates), ""
	case MarketCrypto:
		return cryptoProfit(entry), ""
	default:
		return 0, fmt.Sprintf("unknown market class %q", entry.Market)
	}
}

func sideSign(side string) decimal.Decimal {
	if s, _ := models.ParseSide(side); s == models.SideShort {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// forexProfit: pip difference times contract size, direction adjusted, with
// quote-currency conversion when the pair is not USD-quoted.
func forexProfit(symbol string, entry ManualEntry, rates RateTable) (float64, string) {
	open := decimal.NewFromFloat(entry.EntryPrice)
	close := decimal.NewFromFloat(*entry.ClosePrice)
	lots := decimal.NewFromFloat(entry.Quantity)

	// metals trade in ounces with a 100x contract, everything else is a
	// standard 100k lot
	contract := decimal.NewFromInt(100000)
	if strings.HasPrefix(symbol, "XAU") || strings.HasPrefix(symbol, "XAG") {
		contract = decimal.NewFromInt(100)
	}

	quote := quoteCurrency(symbol)
	pipSize := decimal.NewFromInt(10000)
	if quote == "JPY" {
		pipSize = decimal.NewFromInt(100)
	}

	pips := close.Sub(open).Mul(pipSize)
	profit := pips.Mul(contract).Mul(lots).Div(pipSize).Mul(sideSign(entry.Side))

	warning := ""
	if quote != "USD" {
		rate, ok := rates.quoteToUSD(quote)
		if !ok {
			rate = 0
			warning = fmt.Sprintf("no conversion rate for quote currency %q, profit recorded as 0", quote)
		}
		profit = profit.Mul(decimal.NewFromFloat(rate))
	}

	return profit.Round(2).InexactFloat64(), warning
}

func equityProfit(entry ManualEntry, rates RateTable) float64 {
	currency := strings.ToUpper(entry.Currency)
	if currency == "" {
		currency = "USD"
	}
	diff := decimal.NewFromFloat(*entry.ClosePrice).Sub(decimal.NewFromFloat(entry.EntryPrice))
	profit := diff.
		Mul(decimal.NewFromFloat(entry.Quantity)).
		Mul(sideSign(entry.Side)).
		Div(decimal.NewFromFloat(rates.equityDivide(currency)))
	return profit.Round(2).InexactFloat64()
}

func cryptoProfit(entry ManualEntry) float64 {
	diff := decimal.NewFromFloat(*entry.ClosePrice).Sub(decimal.NewFromFloat(entry.EntryPrice))

	var lot decimal.Decimal
	if entry.LotSize != nil && *entry.LotSize > 0 {
		lot = decimal.NewFromFloat(*entry.LotSize)
	} else {
		lot = decimal.NewFromFloat(entry.Quantity).Div(decimal.NewFromFloat(entry.EntryPrice))
	}

	return diff.Mul(lot).Mul(sideSign(entry.Side)).Round(2).InexactFloat64()
}

// quoteCurrency extracts the quote side of a forex pair symbol. Suffixed
// broker symbols (EURUSD.m) are handled by trimming after the pair.
func quoteCurrency(symbol string) string {
	base := symbol
	if i := strings.IndexAny(base, ".-_"); i > 0 {
		base = base[:i]
	}
	if len(base) >= 6 {
		return base[3:6]
	}
	return "USD"
}
