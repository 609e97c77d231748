package models

import "errors"

// Canonical invariant violations. These stay plain errors so the parsing
// layer can count them as row-level failures without an HTTP mapping.
var (
	ErrTradeMissingSymbol     = errors.New("trade is missing symbol")
	ErrTradeInvalidSide       = errors.New("trade side must be long or short")
	ErrTradeNegativeSize      = errors.New("trade size must not be negative")
	ErrTradeMissingOpenTime   = errors.New("trade is missing open time")
	ErrTradeMissingClosePrice = errors.New("closed trade is missing close price")
)
