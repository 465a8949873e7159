// Package storage persists the operational audit trail: one row per
// reconciliation run and one per user-triggered action. It is optional;
// with no driver configured the bot runs without an audit trail.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"trackbot/pkg/logx"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the audit store.
// If Driver is empty or "none", the store is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite busy_timeout; 0 means default
}

// RunEntry records one reconciliation sweep.
type RunEntry struct {
	At       time.Time
	Scope    string // "all" or the user id
	Forced   bool
	Users    int
	Packages int
	Notified int
	Dirty    bool
	TookMS   int64
}

// ActionEntry records one user-triggered action (add/delete/history/refresh).
type ActionEntry struct {
	At     time.Time
	UserID string
	Action string
	Target string
	OK     bool
	Detail string
}

// Store is the minimal audit API used by the app.
type Store interface {
	AppendRun(ctx context.Context, e RunEntry) error
	AppendAction(ctx context.Context, e ActionEntry) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
