// Package sweep schedules the periodic all-users reconciliation run.
package sweep

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"trackbot/internal/reconcile"
	"trackbot/internal/storage"
	"trackbot/pkg/logx"
)

// Config controls the cron trigger.
type Config struct {
	Enabled  bool
	Schedule string // standard 5-field cron spec
	Timezone string
}

// Runner is the reconciliation entry point the trigger fires.
type Runner interface {
	Run(ctx context.Context, scope reconcile.Scope, force bool) reconcile.Result
}

// Sink receives the result of each run for delivery.
type Sink func(ctx context.Context, res reconcile.Result)

// Service owns the cron instance. Runs are serialized: if a sweep is still
// in flight when the next trigger fires, the trigger is skipped.
type Service struct {
	cfg    Config
	runner Runner
	sink   Sink
	audit  storage.Store
	log    logx.Logger

	mu      sync.Mutex
	c       *cron.Cron
	running bool

	baseCtx context.Context
}

func New(cfg Config, runner Runner, sink Sink, audit storage.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.Schedule) == "" {
		cfg.Schedule = "*/30 * * * *"
	}
	return &Service{
		cfg:    cfg,
		runner: runner,
		sink:   sink,
		audit:  audit,
		log:    log.With(logx.String("comp", "sweep")),
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil || !s.cfg.Enabled {
		return nil
	}

	loc := time.Local
	if tz := strings.TrimSpace(s.cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return err
		}
		loc = l
	}

	s.baseCtx = ctx
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(s.cfg.Schedule, s.tick); err != nil {
		return err
	}
	c.Start()
	s.c = c
	s.log.Info("sweep scheduled",
		logx.String("schedule", s.cfg.Schedule), logx.String("tz", loc.String()))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Service) tick() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("previous sweep still running; skipping trigger")
		return
	}
	s.running = true
	ctx := s.baseCtx
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.RunOnce(ctx)
}

// RunOnce performs one all-users sweep immediately. The cron trigger and
// manual refreshes both funnel through here.
func (s *Service) RunOnce(ctx context.Context) reconcile.Result {
	if ctx == nil {
		ctx = context.Background()
	}
	res := s.runner.Run(ctx, reconcile.AllUsers(), false)
	if s.sink != nil {
		s.sink(ctx, res)
	}
	s.appendAudit(ctx, res)
	return res
}

func (s *Service) appendAudit(ctx context.Context, res reconcile.Result) {
	if s.audit == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := s.audit.AppendRun(cctx, storage.RunEntry{
		At:       time.Now(),
		Scope:    "all",
		Users:    res.Users,
		Packages: res.Packages,
		Notified: len(res.Batches),
		Dirty:    res.Dirty,
		TookMS:   res.Took.Milliseconds(),
	})
	if err != nil {
		s.log.Warn("audit append failed", logx.Err(err))
	}
}
