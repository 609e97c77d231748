package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/edgewise-labs/tradebook/internal/config"
	"github.com/edgewise-labs/tradebook/internal/dedupe"
	"github.com/edgewise-labs/tradebook/internal/models"
	"github.com/edgewise-labs/tradebook/internal/repo"
	"github.com/edgewise-labs/tradebook/internal/statement"
	"github.com/edgewise-labs/tradebook/internal/telegram"
	"github.com/edgewise-labs/tradebook/internal/xe"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// idAttempts ULID冲突时的重新生成次数
const idAttempts = 3

// IngestService 导入协调器：解析 → 去重 → 赋予标识 → 落库
type IngestService struct {
	logger *zap.Logger

	*orz.Service
	*repo.TradeRepo

	accountService *AccountService
	notifier       *telegram.Telegram
	conf           *config.Config

	// per-account advisory locks: two ingestions for the same account
	// must not interleave the fetch-existing/dedupe/insert sequence
	mu           sync.Mutex
	accountLocks map[string]*sync.Mutex
}

// NewIngestService 创建导入服务
func NewIngestService(
	db *gorm.DB,
	logger *zap.Logger,
	conf *config.Config,
	accountService *AccountService,
	notifier *telegram.Telegram,
) *IngestService {
	return &IngestService{
		logger:         logger,
		Service:        orz.NewService(db),
		TradeRepo:      repo.NewTradeRepo(db),
		accountService: accountService,
		notifier:       notifier,
		conf:           conf,
		accountLocks:   make(map[string]*sync.Mutex),
	}
}

// IngestInput 导入入参
type IngestInput struct {
	AccountID  string
	Source     statement.Source
	RawPayload string
	Manual     *statement.ManualEntry
}

// IngestResult 导入结果，部分成功时同样返回计数
type IngestResult struct {
	Added    int                 `json:"added"`
	Skipped  int                 `json:"skipped"`
	Failed   int                 `json:"failed"`
	Warnings []statement.Warning `json:"warnings,omitempty"`
	Message  string              `json:"message"`
}

// Ingest runs a full import for one raw payload. Adapter-level hard errors
// return before storage is touched; after that each trade is saved
// independently, so a failure partway leaves earlier inserts intact and a
// retry of the same payload is suppressed by dedup.
func (s *IngestService) Ingest(ctx context.Context, ownerID string, input IngestInput) (*IngestResult, error) {
	if ownerID == "" || input.AccountID == "" || input.Source == "" {
		return nil, xe.ErrMissingFields
	}
	if input.Source == statement.SourceManual {
		if input.Manual == nil {
			return nil, xe.ErrMissingFields
		}
	} else if input.RawPayload == "" {
		return nil, xe.ErrMissingFields
	}

	account, err := s.accountService.Get(ctx, ownerID, input.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.AcceptsSource(input.Source.AccountKind()) {
		return nil, xe.ErrSourceNotAllowed
	}

	parsed, err := s.parse(account, input)
	if err != nil {
		return nil, err
	}

	return s.ingestParsed(ctx, account, parsed, string(input.Source))
}

// IngestTrades is the entry point for the auto-sync loop: canonical trades
// already mapped from the bridge feed, same dedup/persist path as uploads.
func (s *IngestService) IngestTrades(ctx context.Context, account *models.Account, trades []models.Trade) (*IngestResult, error) {
	parsed := &statement.Result{}
	for i := range trades {
		if err := trades[i].Validate(); err != nil {
			parsed.Warnings = append(parsed.Warnings, statement.Warning{Row: i, Reason: err.Error()})
			continue
		}
		parsed.Trades = append(parsed.Trades, trades[i])
	}
	return s.ingestParsed(ctx, account, parsed, string(models.SourceSync))
}

func (s *IngestService) parse(account *models.Account, input IngestInput) (*statement.Result, error) {
	opts := statement.Options{
		MaxRows:  s.conf.Ingest.MaxRows,
		Location: s.statementLocation(account),
	}

	var parsed *statement.Result
	var err error
	if input.Source == statement.SourceManual {
		rates := statement.RateTable{
			QuoteToUSD:   s.conf.Rates.QuoteToUSD,
			EquityDivide: s.conf.Rates.EquityDivide,
		}
		parsed, err = statement.ParseManual(*input.Manual, rates)
	} else {
		parsed, err = statement.Parse(input.Source, input.RawPayload, opts)
	}

	if err != nil {
		switch {
		case errors.Is(err, statement.ErrNoClosedTrades):
			return nil, xe.ErrNoValidTrades
		case errors.Is(err, statement.ErrTooManyRows):
			return nil, xe.ErrStatementTooLarge
		case errors.Is(err, statement.ErrUnknownSource):
			return nil, xe.ErrUnknownSource
		default:
			return nil, fmt.Errorf("failed to parse %s payload: %w", input.Source, err)
		}
	}
	return parsed, nil
}

// statementLocation resolves the timezone statement timestamps are read in:
// the account's own zone, else the configured ingest default, else UTC.
func (s *IngestService) statementLocation(account *models.Account) *time.Location {
	if account.Timezone != "" {
		return account.Location()
	}
	if s.conf.Ingest.Timezone != "" {
		if loc, err := time.LoadLocation(s.conf.Ingest.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

func (s *IngestService) ingestParsed(ctx context.Context, account *models.Account, parsed *statement.Result, source string) (*IngestResult, error) {
	unlock := s.lockAccount(account.ID)
	defer unlock()

	existing, err := s.TradeRepo.FindByAccountID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing trades: %w", err)
	}

	unique, duplicates := dedupe.Dedupe(parsed.Trades, existing)

	result := &IngestResult{
		Skipped:  duplicates,
		Warnings: parsed.Warnings,
	}

	for i := range unique {
		trade := unique[i]
		trade.AccountID = account.ID
		trade.OwnerID = account.OwnerID

		inserted, err := s.insertWithFreshID(ctx, &trade)
		if err != nil {
			// fatal for this trade only; earlier inserts stay put
			result.Failed++
			s.logger.Error("failed to save trade",
				zap.String("account_id", account.ID),
				zap.String("symbol", trade.Symbol),
				zap.Error(err))
			continue
		}
		if inserted {
			result.Added++
		} else {
			// a concurrent ingest won the race on the fingerprint index
			result.Skipped++
		}
	}

	result.Message = fmt.Sprintf("added %d, skipped %d", result.Added, result.Skipped)
	s.logger.Info("ingest finished",
		zap.String("account_id", account.ID),
		zap.String("source", source),
		zap.Int("added", result.Added),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Int("warnings", len(result.Warnings)))

	s.notify(account, source, result)
	return result, nil
}

// insertWithFreshID assigns a new ULID and retries with a regenerated one
// if the identifier is already taken, instead of failing the whole batch.
func (s *IngestService) insertWithFreshID(ctx context.Context, trade *models.Trade) (bool, error) {
	var lastErr error
	for attempt := 0; attempt < idAttempts; attempt++ {
		trade.ID = ulid.Make().String()

		taken, err := s.TradeRepo.ExistsByID(ctx, trade.ID)
		if err != nil {
			return false, err
		}
		if taken {
			continue
		}

		inserted, err := s.TradeRepo.InsertIgnoreDuplicate(ctx, trade)
		if err == nil {
			return inserted, nil
		}
		lastErr = err
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("identifier collisions exhausted after %d attempts", idAttempts)
	}
	return false, lastErr
}

func (s *IngestService) notify(account *models.Account, source string, result *IngestResult) {
	if s.notifier == nil || !s.conf.Telegram.Enabled || result.Added == 0 {
		return
	}
	err := s.notifier.NotifyIngest(s.conf.Telegram.ChatID, telegram.IngestSummary{
		Account:  account.Name,
		Source:   source,
		Added:    result.Added,
		Skipped:  result.Skipped,
		Warnings: len(result.Warnings),
	})
	if err != nil {
		s.logger.Warn("failed to send ingest notification", zap.Error(err))
	}
}

func (s *IngestService) lockAccount(accountID string) func() {
	s.mu.Lock()
	lock, ok := s.accountLocks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.accountLocks[accountID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
