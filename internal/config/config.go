package config

type Config struct {
	Ingest   IngestConf   `json:"ingest"`
	Sync     SyncConf     `json:"sync"`
	Telegram TelegramConf `json:"telegram"`
	Rates    RatesConf    `json:"rates"`
}

type IngestConf struct {
	MaxRows  int    `json:"max_rows"` // 单次导入最大行数，默认10000
	Timezone string `json:"timezone"` // 账户未配置时区时的默认时区
}

type SyncConf struct {
	Enabled         bool   `json:"enabled"`          // 是否启用自动同步
	BaseURL         string `json:"base_url"`         // 券商桥接服务地址，例如: http://127.0.0.1:8787
	IntervalMinutes int    `json:"interval_minutes"` // 同步周期（分钟），默认15
	TimeoutSeconds  int    `json:"timeout_seconds"`  // 单次请求超时（秒），默认30
}

type TelegramConf struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
}

// RatesConf 手动录入盈亏换算所用的固定汇率表，覆盖内置默认值
type RatesConf struct {
	QuoteToUSD   map[string]float64 `json:"quote_to_usd"`  // 报价货币 -> USD
	EquityDivide map[string]float64 `json:"equity_divide"` // 股票账户货币 -> 除数（USD为1）
}
