// Package notifier delivers outbound Telegram messages asynchronously.
//
// Reconciliation sweeps hand their report cards to the queue; a small worker
// pool drains it behind a token-bucket rate limit so a burst of updates never
// trips Telegram's flood control. Sends are retried with backoff. An edit
// request falls back to sending a fresh message when the original one is gone.
package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/time/rate"

	"trackbot/internal/transport"
	"trackbot/pkg/logx"
)

var (
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

// Config controls the notification pipeline.
type Config struct {
	Workers     int
	QueueSize   int
	RatePerSec  int
	RetryMax    uint
	RetryDelay  time.Duration
	SendTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 128
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 3
	}
	if c.RetryMax == 0 {
		c.RetryMax = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	return c
}

// Service is the async notification pipeline. Safe for concurrent use.
type Service struct {
	cfg     Config
	adapter transport.Adapter
	log     logx.Logger
	limiter *rate.Limiter

	mu        sync.Mutex
	queue     chan transport.Notification
	accepting bool
	enqueueWG sync.WaitGroup
	workerWG  sync.WaitGroup
}

func New(cfg Config, adapter transport.Adapter, log logx.Logger) *Service {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg,
		adapter: adapter,
		log:     log.With(logx.String("comp", "notifier")),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

// Start is idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue != nil {
		return
	}
	s.queue = make(chan transport.Notification, s.cfg.QueueSize)
	s.accepting = true
	for i := 0; i < s.cfg.Workers; i++ {
		s.workerWG.Add(1)
		go func() {
			defer s.workerWG.Done()
			s.workerLoop(ctx, s.queue)
		}()
	}
}

// Stop blocks intake and drains the queue until ctx expires.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	q := s.queue
	if q == nil || !s.accepting {
		s.mu.Unlock()
		return
	}
	s.accepting = false
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.enqueueWG.Wait()
		close(q)
		s.workerWG.Wait()
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	s.mu.Lock()
	s.queue = nil
	s.mu.Unlock()
}

// Notify enqueues a notification without blocking.
func (s *Service) Notify(n transport.Notification) error {
	s.mu.Lock()
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		return ErrStopped
	}
	q := s.queue
	s.enqueueWG.Add(1)
	s.mu.Unlock()
	defer s.enqueueWG.Done()

	select {
	case q <- n:
		return nil
	default:
		s.log.Warn("notification dropped", logx.Int64("chat_id", n.Target.ChatID))
		return ErrQueueFull
	}
}

// Send delivers a notification synchronously, rate limited and retried the
// same way queued sends are. One-shot runs use it so nothing is left queued
// when the process exits.
func (s *Service) Send(ctx context.Context, n transport.Notification) error {
	return s.deliver(ctx, n)
}

func (s *Service) workerLoop(ctx context.Context, q <-chan transport.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-q:
			if !ok {
				return
			}
			if err := s.deliver(ctx, n); err != nil {
				s.log.Error("notification send failed",
					logx.Err(err), logx.Int64("chat_id", n.Target.ChatID))
			}
		}
	}
}

func (s *Service) deliver(ctx context.Context, n transport.Notification) error {
	if s.adapter == nil || n.Text == "" {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return retry.Do(
		func() error { return s.sendOnce(ctx, n) },
		retry.Attempts(s.cfg.RetryMax),
		retry.Delay(s.cfg.RetryDelay),
		retry.MaxDelay(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(attempt uint, err error) {
			s.log.Debug("retrying send", logx.Any("attempt", attempt), logx.Err(err))
		}),
	)
}

func (s *Service) sendOnce(ctx context.Context, n transport.Notification) error {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	if n.Edit != nil {
		err := s.adapter.EditText(cctx, *n.Edit, n.Text, n.Options)
		if err == nil {
			return nil
		}
		s.log.Debug("edit failed, sending new message",
			logx.Err(err), logx.Int("message_id", n.Edit.MessageID))
	}
	_, err := s.adapter.SendText(cctx, n.Target, n.Text, n.Options)
	return err
}
