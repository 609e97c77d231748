package service

import (
	"context"
	"errors"
	"time"

	"github.com/edgewise-labs/tradebook/internal/metrics"
	"github.com/edgewise-labs/tradebook/internal/models"
	"github.com/edgewise-labs/tradebook/internal/repo"
	"github.com/edgewise-labs/tradebook/internal/xe"
	"github.com/go-orz/orz"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReportService 报表门面：所有报表视图都从这里拿同一份快照
type ReportService struct {
	logger *zap.Logger

	*orz.Service
	*repo.TradeRepo

	accountService *AccountService
}

// NewReportService 创建报表服务
func NewReportService(db *gorm.DB, logger *zap.Logger, accountService *AccountService) *ReportService {
	return &ReportService{
		logger:         logger,
		Service:        orz.NewService(db),
		TradeRepo:      repo.NewTradeRepo(db),
		accountService: accountService,
	}
}

// ReportQuery 报表查询条件；日期过滤在进入快照计算前完成
type ReportQuery struct {
	GroupBy metrics.GroupBy
	From    *time.Time
	To      *time.Time
}

// Build is the facade proper: trade slice in, snapshot out. It performs no
// filtering beyond what it is handed.
func (s *ReportService) Build(trades []models.Trade, opts metrics.SnapshotOptions) *metrics.Snapshot {
	return metrics.BuildSnapshot(trades, opts)
}

// Snapshot 计算账户的指标快照
func (s *ReportService) Snapshot(ctx context.Context, ownerID, accountID string, query ReportQuery) (*metrics.Snapshot, error) {
	account, err := s.accountService.Get(ctx, ownerID, accountID)
	if err != nil {
		return nil, err
	}

	trades, err := s.TradeRepo.FindByAccountID(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	filtered := filterByDate(trades, query.From, query.To)
	return s.Build(filtered, metrics.SnapshotOptions{
		GroupBy:  query.GroupBy,
		Location: account.Location(),
	}), nil
}

// Trades 获取账户交易列表
func (s *ReportService) Trades(ctx context.Context, ownerID, accountID string) ([]models.Trade, error) {
	account, err := s.accountService.Get(ctx, ownerID, accountID)
	if err != nil {
		return nil, err
	}
	return s.TradeRepo.FindByAccountID(ctx, account.ID)
}

// AnnotationsInput 日志注释更新入参；nil字段不变更
type AnnotationsInput struct {
	StrategyTag *string   `json:"strategy_tag"`
	QualityTags *[]string `json:"quality_tags"`
	MoodBefore  *string   `json:"mood_before"`
	MoodDuring  *string   `json:"mood_during"`
	MoodAfter   *string   `json:"mood_after"`
}

// UpdateAnnotations updates journal metadata on a persisted trade. The
// canonical fields, including everything the fingerprint is built from,
// stay immutable.
func (s *ReportService) UpdateAnnotations(ctx context.Context, ownerID, tradeID string, in AnnotationsInput) (*models.Trade, error) {
	trade, err := s.TradeRepo.FindByID(ctx, tradeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xe.ErrTradeNotFound
		}
		return nil, err
	}
	if trade.OwnerID != ownerID {
		return nil, xe.ErrPermissionDenied
	}

	values := map[string]interface{}{}
	if in.StrategyTag != nil {
		values["strategy_tag"] = *in.StrategyTag
	}
	if in.QualityTags != nil {
		values["quality_tags"] = datatypes.NewJSONSlice(*in.QualityTags)
	}
	if in.MoodBefore != nil {
		values["mood_before"] = *in.MoodBefore
	}
	if in.MoodDuring != nil {
		values["mood_during"] = *in.MoodDuring
	}
	if in.MoodAfter != nil {
		values["mood_after"] = *in.MoodAfter
	}
	if len(values) == 0 {
		return &trade, nil
	}

	if err := s.TradeRepo.UpdateAnnotations(ctx, trade.ID, values); err != nil {
		return nil, err
	}
	updated, err := s.TradeRepo.FindByID(ctx, trade.ID)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// filterByDate keeps trades whose journal date falls inside the inclusive
// range. Open trades count on their open time.
func filterByDate(trades []models.Trade, from, to *time.Time) []models.Trade {
	if from == nil && to == nil {
		return trades
	}
	filtered := make([]models.Trade, 0, len(trades))
	for i := range trades {
		ts := trades[i].OpenedAt
		if trades[i].ClosedAt != nil {
			ts = *trades[i].ClosedAt
		}
		if from != nil && ts.Before(*from) {
			continue
		}
		if to != nil && ts.After(*to) {
			continue
		}
		filtered = append(filtered, trades[i])
	}
	return filtered
}
