package config

import (
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// envOverrides are secrets that should not live in the config file.
// They are read with the TRACKBOT_ prefix, e.g. TRACKBOT_TELEGRAM_TOKEN.
type envOverrides struct {
	TelegramToken  string `envconfig:"TELEGRAM_TOKEN"`
	FedExAPIKey    string `envconfig:"FEDEX_API_KEY"`
	FedExAPISecret string `envconfig:"FEDEX_API_SECRET"`
}

// ApplyEnv overlays environment secrets onto cfg. Environment values win
// over file values when both are set.
func ApplyEnv(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	var env envOverrides
	if err := envconfig.Process("TRACKBOT", &env); err != nil {
		return err
	}
	if v := strings.TrimSpace(env.TelegramToken); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(env.FedExAPIKey); v != "" {
		cfg.Carriers.FedEx.APIKey = v
	}
	if v := strings.TrimSpace(env.FedExAPISecret); v != "" {
		cfg.Carriers.FedEx.APISecret = v
	}
	return nil
}
