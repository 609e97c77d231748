package repo

import (
	"context"

	"github.com/edgewise-labs/tradebook/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewAccountRepo(db *gorm.DB) *AccountRepo {
	return &AccountRepo{
		Repository: orz.NewRepository[models.Account, string](db),
	}
}

type AccountRepo struct {
	orz.Repository[models.Account, string]
}

// FindByID 按ID查找账户
func (r AccountRepo) FindByID(ctx context.Context, id string) (m models.Account, err error) {
	db := r.GetDB(ctx)
	err = db.Table(r.GetTableName()).
		Where("id = ?", id).
		First(&m).Error
	return m, err
}

// FindByOwnerID 获取用户全部账户
func (r AccountRepo) FindByOwnerID(ctx context.Context, ownerID string) ([]models.Account, error) {
	var accounts []models.Account
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&accounts).Error
	return accounts, err
}

// FindSyncable 获取所有可自动同步的账户
func (r AccountRepo) FindSyncable(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("source_kind = ? AND sync_login <> ''", models.SourceSync).
		Find(&accounts).Error
	return accounts, err
}
