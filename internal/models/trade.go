package models

import (
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Side 交易方向
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// ParseSide normalizes broker side tokens (buy/sell, long/short) to the
// canonical side. Returns false for anything else, e.g. balance rows.
func ParseSide(raw string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "long":
		return SideLong, true
	case "sell", "short":
		return SideShort, true
	}
	return "", false
}

// Trade 规范化交易记录
//
// One row per closed (or still open) trade, regardless of which broker
// format it was imported from. Immutable once persisted except for the
// journal annotation fields.
type Trade struct {
	ID        string `gorm:"primaryKey;type:varchar(26)" json:"id"`
	AccountID string `gorm:"type:varchar(26);not null;index;uniqueIndex:uk_trades_account_fingerprint" json:"account_id"`
	OwnerID   string `gorm:"type:varchar(26);not null;index" json:"owner_id"`

	Ticket   string     `gorm:"type:varchar(50)" json:"ticket"` // broker ticket or ticket-equivalent
	Symbol   string     `gorm:"type:varchar(20);not null;index" json:"symbol"`
	Side     Side       `gorm:"type:varchar(10);not null" json:"side"`
	Size     float64    `gorm:"type:decimal(20,8);not null" json:"size"`
	OpenedAt time.Time  `gorm:"not null;index" json:"opened_at"`
	ClosedAt *time.Time `gorm:"index" json:"closed_at,omitempty"` // nil while the trade is open

	OpenPrice  float64  `gorm:"type:decimal(20,8);not null" json:"open_price"`
	ClosePrice *float64 `gorm:"type:decimal(20,8)" json:"close_price,omitempty"`
	StopLoss   *float64 `gorm:"type:decimal(20,8)" json:"stop_loss,omitempty"`
	TakeProfit *float64 `gorm:"type:decimal(20,8)" json:"take_profit,omitempty"`

	Commission float64 `gorm:"type:decimal(20,8);default:0" json:"commission"`
	Swap       float64 `gorm:"type:decimal(20,8);default:0" json:"swap"`
	// Profit 账户货币净盈亏；所有指标都以该字段为准
	Profit float64 `gorm:"type:decimal(20,8);not null" json:"profit"`

	// Journal annotations, owned by the journaling layer and passed
	// through unchanged. The only mutable part of the record.
	StrategyTag string                      `gorm:"type:varchar(50);index" json:"strategy_tag"`
	QualityTags datatypes.JSONSlice[string] `gorm:"type:json" json:"quality_tags"`
	MoodBefore  string                      `gorm:"type:varchar(30)" json:"mood_before"`
	MoodDuring  string                      `gorm:"type:varchar(30)" json:"mood_during"`
	MoodAfter   string                      `gorm:"type:varchar(30)" json:"mood_after"`

	// Fingerprint 去重指纹，对用户不可见
	Fingerprint string `gorm:"type:varchar(191);not null;uniqueIndex:uk_trades_account_fingerprint" json:"-"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (Trade) TableName() string {
	return "trades"
}

// IsOpen reports whether the trade has not been closed yet.
func (t *Trade) IsOpen() bool {
	return t.ClosedAt == nil
}

// ComputeFingerprint builds the deterministic dedup fingerprint. Two trades
// with the same fingerprint are defined to be the same trade regardless of
// which import path produced them, so the field order and formatting here
// must never change.
func (t *Trade) ComputeFingerprint() string {
	closedAt := int64(0)
	if t.ClosedAt != nil {
		closedAt = t.ClosedAt.Unix()
	}
	parts := []string{
		strconv.FormatInt(t.OpenedAt.Unix(), 10),
		t.Ticket,
		t.Symbol,
		string(t.Side),
		formatFingerprintFloat(t.Size),
		formatFingerprintFloat(t.OpenPrice),
		formatFingerprintFloat(t.Profit),
		formatOptionalFloat(t.StopLoss),
		formatOptionalFloat(t.TakeProfit),
		strconv.FormatInt(closedAt, 10),
		formatOptionalFloat(t.ClosePrice),
	}
	return strings.Join(parts, "|")
}

func formatFingerprintFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFingerprintFloat(*f)
}

// Validate checks the canonical invariants. Adapters drop trades failing
// this instead of zero-filling required fields.
func (t *Trade) Validate() error {
	if t.Symbol == "" {
		return ErrTradeMissingSymbol
	}
	if t.Side != SideLong && t.Side != SideShort {
		return ErrTradeInvalidSide
	}
	if t.Size < 0 {
		return ErrTradeNegativeSize
	}
	if t.OpenedAt.IsZero() {
		return ErrTradeMissingOpenTime
	}
	if t.ClosedAt != nil && t.ClosePrice == nil {
		return ErrTradeMissingClosePrice
	}
	return nil
}
