package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/edgewise-labs/tradebook/internal/config"
	"github.com/edgewise-labs/tradebook/internal/models"
	"github.com/edgewise-labs/tradebook/pkg/bridge"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SyncService 自动同步调度器
//
// Periodically pulls the deal history for every sync-kind account from the
// external broker bridge and funnels it through the regular ingest path, so
// dedup and idempotence behave exactly like a repeated file upload.
type SyncService struct {
	logger *zap.Logger
	conf   config.SyncConf

	client         *bridge.Client
	accountService *AccountService
	ingestService  *IngestService

	mu        sync.Mutex
	isRunning bool
	cron      *cron.Cron
	lastRun   time.Time
	cancel    context.CancelFunc
}

// NewSyncService 创建同步服务
func NewSyncService(
	logger *zap.Logger,
	conf *config.Config,
	accountService *AccountService,
	ingestService *IngestService,
) *SyncService {
	var client *bridge.Client
	if conf.Sync.BaseURL != "" {
		client = bridge.NewClient(conf.Sync.BaseURL, time.Duration(conf.Sync.TimeoutSeconds)*time.Second)
	}
	return &SyncService{
		logger:         logger,
		conf:           conf.Sync,
		client:         client,
		accountService: accountService,
		ingestService:  ingestService,
	}
}

// Start 启动定时同步
func (s *SyncService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("sync loop is already running")
	}
	if s.client == nil {
		return fmt.Errorf("sync bridge is not configured")
	}

	interval := s.conf.IntervalMinutes
	if interval <= 0 {
		interval = 15
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.cron = cron.New()
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", interval), func() {
		s.RunOnce(runCtx)
	})
	if err != nil {
		cancel()
		return fmt.Errorf("failed to schedule sync: %w", err)
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("sync loop started", zap.Int("interval_minutes", interval))
	return nil
}

// Stop 停止定时同步
func (s *SyncService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.isRunning = false
	s.logger.Info("sync loop stopped")
}

// IsRunning 同步循环是否在运行
func (s *SyncService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// LastRun 最近一次同步时间
func (s *SyncService) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// RunOnce syncs every syncable account once. Per-account failures are
// logged and do not stop the remaining accounts.
func (s *SyncService) RunOnce(ctx context.Context) {
	if s.client == nil {
		return
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()

	accounts, err := s.accountService.ListSyncable(ctx)
	if err != nil {
		s.logger.Error("failed to list syncable accounts", zap.Error(err))
		return
	}

	for i := range accounts {
		account := &accounts[i]
		if err := s.syncAccount(ctx, account); err != nil {
			s.logger.Error("account sync failed",
				zap.String("account_id", account.ID),
				zap.String("login", account.SyncLogin),
				zap.Error(err))
		}
	}
}

func (s *SyncService) syncAccount(ctx context.Context, account *models.Account) error {
	deals, err := s.client.FetchDeals(ctx, account.SyncLogin)
	if err != nil {
		return err
	}

	trades := make([]models.Trade, 0, len(deals))
	for _, deal := range deals {
		trade, ok := mapDeal(deal)
		if !ok {
			continue
		}
		trades = append(trades, trade)
	}

	result, err := s.ingestService.IngestTrades(ctx, account, trades)
	if err != nil {
		return err
	}

	s.logger.Info("account synced",
		zap.String("account_id", account.ID),
		zap.Int("deals", len(deals)),
		zap.Int("added", result.Added),
		zap.Int("skipped", result.Skipped))
	return nil
}

// mapDeal converts a bridge deal into the canonical trade shape. Non-trade
// rows (balance operations and the like) are dropped.
func mapDeal(deal bridge.Deal) (models.Trade, bool) {
	side, ok := models.ParseSide(deal.Type)
	if !ok {
		return models.Trade{}, false
	}

	trade := models.Trade{
		Ticket:     deal.Ticket,
		Symbol:     strings.ToUpper(strings.TrimSpace(deal.Symbol)),
		Side:       side,
		Size:       deal.Volume,
		OpenedAt:   time.Unix(deal.OpenTime, 0).UTC(),
		OpenPrice:  deal.OpenPrice,
		Commission: deal.Commission,
		Swap:       deal.Swap,
		Profit:     deal.Profit,
	}
	if deal.StopLoss != 0 {
		sl := deal.StopLoss
		trade.StopLoss = &sl
	}
	if deal.TakeProfit != 0 {
		tp := deal.TakeProfit
		trade.TakeProfit = &tp
	}
	if deal.CloseTime > 0 {
		closedAt := time.Unix(deal.CloseTime, 0).UTC()
		closePrice := deal.ClosePrice
		trade.ClosedAt = &closedAt
		trade.ClosePrice = &closePrice
	}
	return trade, true
}
