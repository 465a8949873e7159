package app

import (
	"time"

	"trackbot/internal/carriers"
	"trackbot/internal/config"
	"trackbot/internal/notifier"
	"trackbot/internal/storage"
	"trackbot/internal/sweep"
	"trackbot/pkg/logx"
)

// Mapping helpers translate the file config (strings, pointers) into each
// component's typed config.

func mapLogxConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ChatID:     cfg.Telegram.AdminChatID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapCarriersConfig(cfg *config.Config) (carriers.Config, error) {
	timeout, err := config.ParseDurationField("carriers.timeout", cfg.Carriers.Timeout)
	if err != nil {
		return carriers.Config{}, err
	}
	return carriers.Config{
		Timeout: timeout,
		UniUni:  carriers.UniUniConfig{BaseURL: cfg.Carriers.UniUni.BaseURL},
		FedEx: carriers.FedExConfig{
			APIURL:    cfg.Carriers.FedEx.APIURL,
			APIKey:    cfg.Carriers.FedEx.APIKey,
			APISecret: cfg.Carriers.FedEx.APISecret,
		},
	}, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	if cfg.Audit == nil {
		return storage.Config{}, nil
	}
	busy, err := config.ParseDurationField("audit.busy_timeout", cfg.Audit.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      cfg.Audit.Driver,
		Path:        cfg.Audit.Path,
		BusyTimeout: busy,
	}, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	if cfg.Notifier == nil {
		return notifier.Config{}, nil
	}
	delay, err := config.ParseDurationField("notifier.retry_delay", cfg.Notifier.RetryDelay)
	if err != nil {
		return notifier.Config{}, err
	}
	retryMax := uint(0)
	if cfg.Notifier.RetryMax > 0 {
		retryMax = uint(cfg.Notifier.RetryMax)
	}
	return notifier.Config{
		Workers:    cfg.Notifier.Workers,
		QueueSize:  cfg.Notifier.QueueSize,
		RatePerSec: cfg.Notifier.RatePerSec,
		RetryMax:   retryMax,
		RetryDelay: delay,
	}, nil
}

func mapSweepConfig(cfg *config.Config) sweep.Config {
	return sweep.Config{
		Enabled:  cfg.Sweep.Enabled,
		Schedule: cfg.Sweep.Schedule,
		Timezone: cfg.Sweep.Timezone,
	}
}

func pollTimeout(cfg *config.Config) (time.Duration, error) {
	return config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
}
