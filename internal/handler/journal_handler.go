package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/edgewise-labs/tradebook/internal/metrics"
	"github.com/edgewise-labs/tradebook/internal/service"
	"github.com/edgewise-labs/tradebook/internal/statement"
	"github.com/edgewise-labs/tradebook/internal/xe"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// dateLayout 查询参数中的日期格式
const dateLayout = "2006-01-02"

// JournalHandler 交易日志HTTP处理器
type JournalHandler struct {
	accountService *service.AccountService
	ingestService  *service.IngestService
	reportService  *service.ReportService
	syncService    *service.SyncService
	logger         *zap.Logger
}

// NewJournalHandler 创建日志处理器
func NewJournalHandler(
	accountService *service.AccountService,
	ingestService *service.IngestService,
	reportService *service.ReportService,
	syncService *service.SyncService,
	logger *zap.Logger,
) *JournalHandler {
	return &JournalHandler{
		accountService: accountService,
		ingestService:  ingestService,
		reportService:  reportService,
		syncService:    syncService,
		logger:         logger,
	}
}

// ownerID pulls the caller identity set by the upstream gateway. An empty
// header is treated as an unauthenticated request.
func ownerID(c echo.Context) (string, error) {
	owner := c.Request().Header.Get("X-Owner-ID")
	if owner == "" {
		return "", xe.ErrPermissionDenied
	}
	return owner, nil
}

// CreateAccount 创建交易账户
// POST /api/journal/accounts
func (h *JournalHandler) CreateAccount(c echo.Context) error {
	ctx := c.Request().Context()

	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	var req service.CreateAccountInput
	if err := c.Bind(&req); err != nil {
		return xe.ErrMissingFields
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	account, err := h.accountService.Create(ctx, owner, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

// ListAccounts 获取账户列表
// GET /api/journal/accounts
func (h *JournalHandler) ListAccounts(c echo.Context) error {
	ctx := c.Request().Context()

	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	accounts, err := h.accountService.List(ctx, owner)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":    len(accounts),
		"accounts": accounts,
	})
}

// GetAccount 获取单个账户
// GET /api/journal/accounts/:id
func (h *JournalHandler) GetAccount(c echo.Context) error {
	ctx := c.Request().Context()

	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	account, err := h.accountService.Get(ctx, owner, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

// Import 导入对账单
// POST /api/journal/import
func (h *JournalHandler) Import(c echo.Context) error {
	ctx := c.Request().Context()

	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	var req struct {
		AccountID string `json:"account_id" validate:"required"`
		Source    string `json:"source" validate:"required"`
		Payload   string `json:"payload" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return xe.ErrMissingFields
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	source, ok := statement.ParseSource(req.Source)
	if !ok || source == statement.SourceManual {
		return xe.ErrUnknownSource
	}

	result, err := h.ingestService.Ingest(ctx, owner, service.IngestInput{
		AccountID:  req.AccountID,
		Source:     source,
		RawPayload: req.Payload,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Manual 手动录入一笔交易
// POST /api/journal/manual
func (h *JournalHandler) Manual(c echo.Context) error {
	ctx := c.Request().Context()

	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	var req struct {
		AccountID             string `json:"account_id" validate:"required"`
		statement.ManualEntry        // flattened journal fields
	}
	if err := c.Bind(&req); err != nil {
		return xe.ErrMissingFields
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.ingestService.Ingest(ctx, owner, service.IngestInput{
		AccountID: req.AccountID,
		Source:    statement.SourceManual,
		Manual:    &req.ManualEntry,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// ListTrades 获取账户交易记录
// GET /api/journal/trades?account_id=xxx
func (h *JournalHandler) ListTrades(c echo.Context) error {
	ctx := c.Request().Context()

	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	accountID := c.QueryParam("account_id")
	if accountID == "" {
		return xe.ErrMissingFields
	}

	trades, err := h.reportService.Trades(ctx, owner, accountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":  len(trades),
		"trades": trades,
	})
}

// GetMetrics 获取指标快照
// GET /api/journal/metrics?account_id=xxx&group=day&from=2026-01-01&to=2026-01-31
func (h *JournalHandler) GetMetrics(c echo.Context) error {
	ctx := c.Request().Context()

	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	accountID := c.QueryParam("account_id")
	if accountID == "" {
		return xe.ErrMissingFields
	}

	groupBy, ok := metrics.ParseGroupBy(c.QueryParam("group"))
	if !ok {
		return xe.ErrMissingFields
	}

	var query service.ReportQuery
	query.GroupBy = groupBy
	if raw := c.QueryParam("from"); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			return xe.ErrMissingFields
		}
		query.From = &from
	}
	if raw := c.QueryParam("to"); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			return xe.ErrMissingFields
		}
		// inclusive range: push the bound to the end of that day
		end := to.Add(24*time.Hour - time.Nanosecond)
		query.To = &end
	}

	snapshot, err := h.reportService.Snapshot(ctx, owner, accountID, query)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snapshot)
}

// UpdateAnnotations 更新交易注释
// PATCH /api/journal/trades/:id/annotations
func (h *JournalHandler) UpdateAnnotations(c echo.Context) error {
	ctx := c.Request().Context()

	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	var req service.AnnotationsInput
	if err := c.Bind(&req); err != nil {
		return xe.ErrMissingFields
	}

	trade, err := h.reportService.UpdateAnnotations(ctx, owner, c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, trade)
}

// SyncStatus 获取自动同步状态
// GET /api/journal/sync/status
func (h *JournalHandler) SyncStatus(c echo.Context) error {
	if _, err := ownerID(c); err != nil {
		return err
	}

	status := map[string]interface{}{
		"running": h.syncService.IsRunning(),
	}
	if last := h.syncService.LastRun(); !last.IsZero() {
		status["last_run"] = last
	}
	return c.JSON(http.StatusOK, status)
}

// SyncNow 立即触发一轮同步
// POST /api/journal/sync/run
func (h *JournalHandler) SyncNow(c echo.Context) error {
	if _, err := ownerID(c); err != nil {
		return err
	}

	go h.syncService.RunOnce(context.Background())

	h.logger.Info("manual sync triggered via API")
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "sync started",
	})
}

// RegisterRoutes 注册路由
func (h *JournalHandler) RegisterRoutes(g *echo.Group) {
	journal := g.Group("/journal")

	journal.POST("/accounts", h.CreateAccount)
	journal.GET("/accounts", h.ListAccounts)
	journal.GET("/accounts/:id", h.GetAccount)

	journal.POST("/import", h.Import)
	journal.POST("/manual", h.Manual)

	journal.GET("/trades", h.ListTrades)
	journal.PATCH("/trades/:id/annotations", h.UpdateAnnotations)

	journal.GET("/metrics", h.GetMetrics)

	journal.GET("/sync/status", h.SyncStatus)
	journal.POST("/sync/run", h.SyncNow)
}
