package repo

import (
	"context"

	"github.com/edgewise-labs/tradebook/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewTradeRepo(db *gorm.DB) *TradeRepo {
	return &TradeRepo{
		Repository: orz.NewRepository[models.Trade, string](db),
	}
}

type TradeRepo struct {
	orz.Repository[models.Trade, string]
}

// FindByAccountID 获取账户全部交易（按开仓时间排序）
func (r TradeRepo) FindByAccountID(ctx context.Context, accountID string) ([]models.Trade, error) {
	var trades []models.Trade
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("account_id = ?", accountID).
		Order("opened_at ASC").
		Find(&trades).Error
	return trades, err
}

// FindByID 按ID查找交易
func (r TradeRepo) FindByID(ctx context.Context, id string) (m models.Trade, err error) {
	db := r.GetDB(ctx)
	err = db.Table(r.GetTableName()).
		Where("id = ?", id).
		First(&m).Error
	return m, err
}

// ExistsByID 检查交易ID是否已占用
func (r TradeRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	var count int64
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

// InsertIgnoreDuplicate inserts a trade, treating a conflict on the
// (account_id, fingerprint) unique index as "already imported". This is the
// storage-level backstop for two ingestions racing on the same account:
// both may pass the in-memory dedup check, only one insert wins, the other
// counts as skipped instead of erroring. Returns whether a row was written.
func (r TradeRepo) InsertIgnoreDuplicate(ctx context.Context, trade *models.Trade) (bool, error) {
	db := r.GetDB(ctx)
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "fingerprint"}},
		DoNothing: true,
	}).Create(trade)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateAnnotations 更新日志注释字段，指纹字段保持不变
func (r TradeRepo) UpdateAnnotations(ctx context.Context, id string, values map[string]interface{}) error {
	db := r.GetDB(ctx)
	return db.Table(r.GetTableName()).
		Where("id = ?", id).
		Updates(values).Error
}

// CountByAccountID 账户交易数
func (r TradeRepo) CountByAccountID(ctx context.Context, accountID string) (int64, error) {
	var count int64
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("account_id = ?", accountID).
		Count(&count).Error
	return count, err
}
