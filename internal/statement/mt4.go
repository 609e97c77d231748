package statement

import (
	"fmt"
	"strings"

	"github.com/edgewise-labs/tradebook/internal/models"
)

// MT4账户历史报表：以 "Closed Transactions:" 开始，"Open Trades:" 结束，
// 中间是固定14列的成交行。
const (
	mt4ClosedMarker = "Closed Transactions:"
	mt4OpenMarker   = "Open Trades:"
	mt4ColumnCount  = 14
	mt4HeaderToken  = "Ticket"
)

// MT4 column layout:
// ticket, open time, type, size, item, open price, S/L, T/P,
// close time, close price, commission, taxes, swap, profit
const (
	mt4ColTicket = iota
	mt4ColOpenTime
	mt4ColType
	mt4ColSize
	mt4ColItem
	mt4ColOpenPrice
	mt4ColStopLoss
	mt4ColTakeProfit
	mt4ColCloseTime
	mt4ColClosePrice
	mt4ColCommission
	mt4ColTaxes
	mt4ColSwap
	mt4ColProfit
)

// ParseMT4 parses an MT4 account history export. Rows are consumed strictly
// between the two section markers; malformed rows are dropped with a warning
// instead of aborting the batch. Zero surviving rows is a hard failure so a
// malformed upload stays visible to the caller.
func ParseMT4(raw string, opts Options) (*Result, error) {
	rows, err := extractRows(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MT4 statement: %w", err)
	}
	if len(rows) > opts.maxRows() {
		return nil, ErrTooManyRows
	}

	result := &Result{}
	inClosed := false
	for i, row := range rows {
		if !inClosed {
			if rowContains(row, mt4ClosedMarker) {
				inClosed = true
			}
			continue
		}
		if rowContains(row, mt4OpenMarker) {
			break
		}
		if rowContains(row, mt4HeaderToken) {
			continue
		}
		if len(row) != mt4ColumnCount {
			result.warn(i, fmt.Sprintf("expected %d columns, got %d", mt4ColumnCount, len(row)))
			continue
		}

		trade, err := mt4Row(row, opts)
		if err != nil {
			result.warn(i, err.Error())
			continue
		}
		if err := trade.Validate(); err != nil {
			result.warn(i, err.Error())
			continue
		}
		result.Trades = append(result.Trades, trade)
	}

	if len(result.Trades) == 0 {
		return nil, ErrNoClosedTrades
	}
	return result, nil
}

func mt4Row(cells []string, opts Options) (models.Trade, error) {
	var t models.Trade

	side, ok := models.ParseSide(cells[mt4ColType])
	if !ok {
		// balance/credit rows land in the same section
		return t, fmt.Errorf("unsupported row type %q", cells[mt4ColType])
	}

	openedAt, err := parseTime(cells[mt4ColOpenTime], opts.location())
	if err != nil {
		return t, fmt.Errorf("invalid open time %q", cells[mt4ColOpenTime])
	}
	closedAt, err := parseTime(cells[mt4ColCloseTime], opts.location())
	if err != nil {
		return t, fmt.Errorf("invalid close time %q", cells[mt4ColCloseTime])
	}

	size, err := parseFloatCell(cells[mt4ColSize])
	if err != nil {
		return t, fmt.Errorf("invalid size %q", cells[mt4ColSize])
	}
	openPrice, err := parseFloatCell(cells[mt4ColOpenPrice])
	if err != nil {
		return t, fmt.Errorf("invalid open price %q", cells[mt4ColOpenPrice])
	}
	closePrice, err := parseFloatCell(cells[mt4ColClosePrice])
	if err != nil {
		return t, fmt.Errorf("invalid close price %q", cells[mt4ColClosePrice])
	}
	profit, err := parseFloatCell(cells[mt4ColProfit])
	if err != nil {
		return t, fmt.Errorf("invalid profit %q", cells[mt4ColProfit])
	}

	t = models.Trade{
		Ticket:     strings.TrimSpace(cells[mt4ColTicket]),
		Symbol:     strings.ToUpper(strings.TrimSpace(cells[mt4ColItem])),
		Side:       side,
		Size:       size,
		OpenedAt:   openedAt,
		ClosedAt:   &closedAt,
		OpenPrice:  openPrice,
		ClosePrice: &closePrice,
		StopLoss:   optionalPrice(lenientFloat(cells[mt4ColStopLoss])),
		TakeProfit: optionalPrice(lenientFloat(cells[mt4ColTakeProfit])),
		// taxes are folded into commission, the canonical record keeps
		// a single cost column besides swap
		Commission: lenientFloat(cells[mt4ColCommission]) + lenientFloat(cells[mt4ColTaxes]),
		Swap:       lenientFloat(cells[mt4ColSwap]),
		Profit:     profit,
	}
	return t, nil
}
