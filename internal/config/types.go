package config

// Config is the on-disk configuration. JSON and YAML files are both
// accepted; YAML is converted to JSON before the strict decode so unknown
// keys are rejected in either format.
//
// All durations are Go duration strings (e.g. "500ms", "15s", "1m").
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`

	// Store is the package registry file (the JSON document of tracked
	// packages per user).
	Store StoreConfig `json:"store"`

	// Audit is the optional operational audit trail.
	Audit *AuditConfig `json:"audit,omitempty"`

	Carriers CarriersConfig  `json:"carriers"`
	Sweep    SweepConfig     `json:"sweep"`
	Notifier *NotifierConfig `json:"notifier,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// AdminChatID owns packages migrated from the legacy single-user
	// registry format and receives operational log messages.
	AdminChatID int64 `json:"admin_chat_id"`

	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

type StoreConfig struct {
	Path string `json:"path"`
}

// AuditConfig mirrors storage.Config.
//
// Example:
//
//	"audit": { "driver": "sqlite", "path": "./trackbot.db" }
type AuditConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type CarriersConfig struct {
	// Timeout bounds a single carrier HTTP call.
	Timeout string `json:"timeout,omitempty"`

	UniUni UniUniConfig `json:"uniuni,omitempty"`
	FedEx  FedExConfig  `json:"fedex,omitempty"`
}

type UniUniConfig struct {
	BaseURL string `json:"base_url,omitempty"`
}

// FedExConfig holds the tracking API credentials. Prefer supplying the key
// and secret through TRACKBOT_FEDEX_API_KEY / TRACKBOT_FEDEX_API_SECRET
// instead of the config file.
type FedExConfig struct {
	APIURL    string `json:"api_url,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	APISecret string `json:"api_secret,omitempty"`
}

// SweepConfig controls the periodic all-users reconciliation.
type SweepConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"` // cron spec, default "*/30 * * * *"
	Timezone string `json:"timezone,omitempty"`
}

type NotifierConfig struct {
	Workers    int    `json:"workers,omitempty"`
	QueueSize  int    `json:"queue_size,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	RetryMax   int    `json:"retry_max,omitempty"`
	RetryDelay string `json:"retry_delay,omitempty"`
}
