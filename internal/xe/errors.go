package xe

import "github.com/go-orz/orz"

var (
	ErrMissingFields     = orz.NewError(10400, "missing fields")
	ErrAccountNotFound   = orz.NewError(10404, "account not found")
	ErrTradeNotFound     = orz.NewError(10405, "trade not found")
	ErrNoValidTrades     = orz.NewError(10422, "no valid trades found")
	ErrStatementTooLarge = orz.NewError(10413, "statement too large")
	ErrUnknownSource     = orz.NewError(10415, "unknown source kind")
	ErrSourceNotAllowed  = orz.NewError(10409, "source kind not allowed for this account")
	ErrPermissionDenied  = orz.NewError(10401, "you do not have access to this data")
)
