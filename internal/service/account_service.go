package service

import (
	"context"
	"errors"
	"strings"

	"github.com/edgewise-labs/tradebook/internal/models"
	"github.com/edgewise-labs/tradebook/internal/repo"
	"github.com/edgewise-labs/tradebook/internal/xe"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AccountService 交易账户管理服务
type AccountService struct {
	logger *zap.Logger

	*orz.Service
	*repo.AccountRepo
}

// NewAccountService 创建账户服务
func NewAccountService(db *gorm.DB, logger *zap.Logger) *AccountService {
	return &AccountService{
		logger:      logger,
		Service:     orz.NewService(db),
		AccountRepo: repo.NewAccountRepo(db),
	}
}

// CreateAccountInput 创建账户入参
type CreateAccountInput struct {
	Name       string            `json:"name" validate:"required"`
	SourceKind models.SourceKind `json:"source_kind" validate:"required"`
	Currency   string            `json:"currency"`
	Timezone   string            `json:"timezone"`
	SyncLogin  string            `json:"sync_login"`
}

// Create 创建账户，导入来源类型创建后不可变更
func (s *AccountService) Create(ctx context.Context, ownerID string, in CreateAccountInput) (*models.Account, error) {
	if ownerID == "" || strings.TrimSpace(in.Name) == "" || in.SourceKind == "" {
		return nil, xe.ErrMissingFields
	}
	if !in.SourceKind.Valid() {
		return nil, xe.ErrUnknownSource
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}

	account := &models.Account{
		ID:         ulid.Make().String(),
		OwnerID:    ownerID,
		Name:       strings.TrimSpace(in.Name),
		SourceKind: in.SourceKind,
		Currency:   currency,
		Timezone:   strings.TrimSpace(in.Timezone),
		SyncLogin:  strings.TrimSpace(in.SyncLogin),
	}
	if err := s.AccountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account created",
		zap.String("account_id", account.ID),
		zap.String("source_kind", string(account.SourceKind)))
	return account, nil
}

// Get 获取账户并校验归属
func (s *AccountService) Get(ctx context.Context, ownerID, accountID string) (*models.Account, error) {
	account, err := s.AccountRepo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xe.ErrAccountNotFound
		}
		return nil, err
	}
	if account.OwnerID != ownerID {
		return nil, xe.ErrPermissionDenied
	}
	return &account, nil
}

// List 获取用户的全部账户
func (s *AccountService) List(ctx context.Context, ownerID string) ([]models.Account, error) {
	return s.AccountRepo.FindByOwnerID(ctx, ownerID)
}

// ListSyncable 获取所有可自动同步的账户
func (s *AccountService) ListSyncable(ctx context.Context) ([]models.Account, error) {
	return s.AccountRepo.FindSyncable(ctx)
}
