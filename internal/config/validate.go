package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

// Validate checks cross-field constraints that the strict decode cannot.
// It is called both at startup and before committing a reload.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram.token is required (file or TRACKBOT_TELEGRAM_TOKEN)")
	}
	if _, err := ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Store.Path) == "" {
		return errors.New("store.path is required")
	}
	if _, err := ParseDurationField("carriers.timeout", cfg.Carriers.Timeout); err != nil {
		return err
	}
	if cfg.Audit != nil {
		if _, err := ParseDurationField("audit.busy_timeout", cfg.Audit.BusyTimeout); err != nil {
			return err
		}
	}
	if cfg.Notifier != nil {
		if _, err := ParseDurationField("notifier.retry_delay", cfg.Notifier.RetryDelay); err != nil {
			return err
		}
	}
	if cfg.Sweep.Enabled {
		spec := cfg.Sweep.Schedule
		if strings.TrimSpace(spec) == "" {
			spec = DefaultSweepSchedule
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("sweep.schedule: %w", err)
		}
		if tz := strings.TrimSpace(cfg.Sweep.Timezone); tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return fmt.Errorf("sweep.timezone: %w", err)
			}
		}
	}
	return nil
}

// DefaultSweepSchedule runs the all-users sweep every 30 minutes.
const DefaultSweepSchedule = "*/30 * * * *"
