package statement

import (
	"fmt"
	"strings"

	"github.com/edgewise-labs/tradebook/internal/models"
)

// MT5报表：以 "Positions" 表头开始，数据行紧随其后，每行至少5列。
// 尾部可选列因券商模板不同而变化，最后一列始终是盈亏。
const (
	mt5PositionsMarker = "Positions"
	mt5MinColumns      = 5
)

// MT5 column layout (leading columns are stable, trailing ones vary):
// open time, ticket, item, type, size, open price, stop loss, take profit,
// close time, close price, commission, swap, profit (always last)
const (
	mt5ColOpenTime = iota
	mt5ColTicket
	mt5ColItem
	mt5ColType
	mt5ColSize
	mt5ColOpenPrice
	mt5ColStopLoss
	mt5ColTakeProfit
	mt5ColCloseTime
	mt5ColClosePrice
	mt5ColCommission
	mt5ColSwap
)

// ParseMT5 parses an MT5 trade report. Numeric cells that fail to parse
// default to 0 rather than aborting the row; a row is only dropped when a
// required canonical field (symbol, side, open time) cannot be recovered.
func ParseMT5(raw string, opts Options) (*Result, error) {
	rows, err := extractRows(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MT5 statement: %w", err)
	}
	if len(rows) > opts.maxRows() {
		return nil, ErrTooManyRows
	}

	start := -1
	for i, row := range rows {
		if rowContains(row, mt5PositionsMarker) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil, ErrNoClosedTrades
	}

	result := &Result{}
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if len(row) < mt5MinColumns {
			break
		}
		// column header row directly below the section title
		if rowContains(row, "Time") && rowContains(row, "Symbol") {
			continue
		}
		// a row whose first cell is not a timestamp ends the section
		// (the next section title renders as a wide spanning row)
		openedAt, err := parseTime(cell(row, mt5ColOpenTime), opts.location())
		if err != nil {
			break
		}

		side, ok := models.ParseSide(cell(row, mt5ColType))
		if !ok {
			result.warn(i, fmt.Sprintf("unsupported row type %q", cell(row, mt5ColType)))
			continue
		}
		symbol := strings.ToUpper(strings.TrimSpace(cell(row, mt5ColItem)))
		if symbol == "" {
			result.warn(i, "missing symbol")
			continue
		}

		trade := models.Trade{
			Ticket:     strings.TrimSpace(cell(row, mt5ColTicket)),
			Symbol:     symbol,
			Side:       side,
			Size:       lenientFloat(cell(row, mt5ColSize)),
			OpenedAt:   openedAt,
			OpenPrice:  lenientFloat(cell(row, mt5ColOpenPrice)),
			StopLoss:   optionalPrice(lenientFloat(cell(row, mt5ColStopLoss))),
			TakeProfit: optionalPrice(lenientFloat(cell(row, mt5ColTakeProfit))),
			Commission: lenientFloat(cell(row, mt5ColCommission)),
			Swap:       lenientFloat(cell(row, mt5ColSwap)),
			// the last cell in the row is always profit, trailing
			// optional columns vary by broker template
			Profit: lenientFloat(row[len(row)-1]),
		}

		if closedAt, err := parseTime(cell(row, mt5ColCloseTime), opts.location()); err == nil {
			closePrice := lenientFloat(cell(row, mt5ColClosePrice))
			trade.ClosedAt = &closedAt
			trade.ClosePrice = &closePrice
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
