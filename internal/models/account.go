package models

import (
	"time"

	"gorm.io/gorm"
)

// SourceKind 账户的导入来源类型，创建时固定
type SourceKind string

const (
	SourceManual SourceKind = "manual" // 手动录入
	SourceFile   SourceKind = "file"   // MT4/MT5报表上传
	SourceSync   SourceKind = "sync"   // 自动同步
)

// Valid reports whether the kind is one of the known source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceManual, SourceFile, SourceSync:
		return true
	}
	return false
}

// Account 交易账户
type Account struct {
	ID      string `gorm:"primaryKey;type:varchar(26)" json:"id"`
	OwnerID string `gorm:"type:varchar(26);not null;index" json:"owner_id"`
	Name    string `gorm:"type:varchar(100);not null" json:"name"`
	// SourceKind 固定的导入来源，决定哪些导入路径可写入该账户
	SourceKind SourceKind `gorm:"type:varchar(10);not null" json:"source_kind"`
	Currency   string     `gorm:"type:varchar(10);default:USD" json:"currency"`
	// Timezone 账户本地时区，日级聚合按该时区切日
	Timezone string `gorm:"type:varchar(50)" json:"timezone"`
	// SyncLogin 自动同步账户在券商桥接端的登录号
	SyncLogin string `gorm:"type:varchar(50)" json:"sync_login"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (Account) TableName() string {
	return "accounts"
}

// AcceptsSource reports whether an import of the given statement source may
// be written into this account.
func (a *Account) AcceptsSource(kind SourceKind) bool {
	return a.SourceKind == kind
}

// Location resolves the account-local timezone, falling back to UTC.
func (a *Account) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
