package internal

import (
	"context"
	"fmt"
	"net/http"

	"github.com/edgewise-labs/tradebook/internal/config"
	"github.com/edgewise-labs/tradebook/internal/handler"
	"github.com/edgewise-labs/tradebook/internal/models"
	"github.com/edgewise-labs/tradebook/internal/service"
	"github.com/edgewise-labs/tradebook/internal/telegram"
	"github.com/edgewise-labs/tradebook/pkg/nostd"
	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func Run(configPath string) error {
	app := NewTradebookApp()

	framework, err := orz.NewFramework(
		orz.WithConfig(configPath),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	return framework.Run()
}

func NewTradebookApp() orz.Application {
	return &TradebookApp{}
}

var _ orz.Application = (*TradebookApp)(nil)

type AppComponents struct {
	JournalHandler *handler.JournalHandler

	// Journal services
	AccountService *service.AccountService
	IngestService  *service.IngestService
	ReportService  *service.ReportService
	SyncService    *service.SyncService

	tg *telegram.Telegram
}

type TradebookApp struct {
	components *AppComponents
	conf       *config.Config
}

// GetComponents 获取应用组件
func (r *TradebookApp) GetComponents() *AppComponents {
	return r.components
}

func (r *TradebookApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	err := app.GetConfig().App.Unmarshal(&conf)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}

	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %v", err)
	}
	r.components = components
	r.conf = &conf

	if err := db.AutoMigrate(
		models.Account{}, models.Trade{},
	); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	if err := r.Init(logger); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      middleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	api := e.Group("/api")
	{
		if r.components.JournalHandler != nil {
			r.components.JournalHandler.RegisterRoutes(api)
		}
	}

	return nil
}

func (r *TradebookApp) Init(logger *zap.Logger) error {
	logger.Info("=================================================")
	logger.Info("Tradebook Journal Starting...")
	logger.Info("=================================================")

	components := r.GetComponents()
	if components == nil {
		return fmt.Errorf("components not initialized")
	}

	if components.tg != nil {
		go components.tg.Start()
	}

	if r.conf.Sync.Enabled {
		if err := components.SyncService.Start(context.Background()); err != nil {
			logger.Warn("auto sync not started", zap.Error(err))
		}
	}

	return nil
}
