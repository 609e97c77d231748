package telegram

import (
	"net/http"
	"time"

	"github.com/spf13/cast"
	"github.com/valyala/fasttemplate"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/middleware"
)

type Settings struct {
	Token  string
	Client *http.Client
}

type Telegram struct {
	logger   *zap.Logger
	settings Settings
	client   *tele.Bot
}

type Option func(telegram *Telegram)

func NewTelegram(logger *zap.Logger, settings Settings, options ...Option) (*Telegram, error) {

	poller := &tele.LongPoller{Timeout: 10 * time.Second}

	userMiddleware := tele.NewMiddlewarePoller(poller, func(u *tele.Update) bool {
		return true
	})

	client, err := tele.NewBot(tele.Settings{
		ParseMode: tele.ModeMarkdown,
		Token:     settings.Token,
		Poller:    userMiddleware,
		Client:    settings.Client,
	})
	if err != nil {
		return nil, err
	}

	client.Use(middleware.AutoRespond())

	err = client.SetCommands([]tele.Command{
		{Text: "/start", Description: "Start the bot"},
		{Text: "/help", Description: "Show help"},
	})
	if err != nil {
		return nil, err
	}

	bot := &Telegram{
		logger:   logger,
		settings: settings,
		client:   client,
	}

	for _, option := range options {
		option(bot)
	}

	return bot, nil
}

func (r *Telegram) Start() {
	go r.client.Start()
}

func (r *Telegram) Notify(chatId, msg string) error {
	_chatId := cast.ToInt(chatId)
	_, err := r.client.Send(tele.ChatID(_chatId), msg, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	return err
}

// IngestSummary 导入结果摘要
type IngestSummary struct {
	Account  string
	Source   string
	Added    int
	Skipped  int
	Warnings int
}

const ingestSummaryTemplate = `*Import finished*
account: {{account}}
source: {{source}}
added: {{added}}
skipped: {{skipped}}
warnings: {{warnings}}`

func renderIngestSummary(summary IngestSummary) string {
	tmpl := fasttemplate.New(ingestSummaryTemplate, "{{", "}}")
	return tmpl.ExecuteString(map[string]interface{}{
		"account":  escapeMarkdown(summary.Account),
		"source":   summary.Source,
		"added":    cast.ToString(summary.Added),
		"skipped":  cast.ToString(summary.Skipped),
		"warnings": cast.ToString(summary.Warnings),
	})
}

// NotifyIngest sends a short summary after an import added new trades.
func (r *Telegram) NotifyIngest(chatId string, summary IngestSummary) error {
	return r.Notify(chatId, renderIngestSummary(summary))
}
