// Package app wires the components together and owns the process
// lifecycle for both the long-running bot and the one-shot modes.
package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"trackbot/internal/bot"
	"trackbot/internal/carriers"
	"trackbot/internal/config"
	"trackbot/internal/notifier"
	"trackbot/internal/reconcile"
	"trackbot/internal/report"
	"trackbot/internal/runtime/supervisor"
	"trackbot/internal/storage"
	"trackbot/internal/store"
	"trackbot/internal/sweep"
	"trackbot/internal/transport"
	"trackbot/internal/transport/telegram"
	"trackbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	adapter transport.Adapter
	notif   *notifier.Service
	audit   storage.Store
	repo    *store.Repository
	orch    *reconcile.Orchestrator
	disp    *bot.Dispatcher
	sweeper *sweep.Service
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	pt, err := pollTimeout(cfg)
	if err != nil {
		return nil, err
	}
	bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram"))
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pt,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogxConfig(cfg), ad)
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	scfg, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	audit, err := storage.Open(scfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	if audit != nil {
		log.Info("audit storage enabled", logx.String("driver", scfg.Driver))
	}

	adminID := ""
	if cfg.Telegram.AdminChatID != 0 {
		adminID = strconv.FormatInt(cfg.Telegram.AdminChatID, 10)
	}
	repo := store.NewRepository(cfg.Store.Path, adminID, log.With(logx.String("comp", "store")))

	ccfg, err := mapCarriersConfig(cfg)
	if err != nil {
		return nil, err
	}
	registry := carriers.NewRegistry(ccfg, log.With(logx.String("comp", "carriers")))
	orch := reconcile.New(repo, registry, log.With(logx.String("comp", "reconcile")))

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notif := notifier.New(ncfg, ad, log)

	a := &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		adapter: ad,
		notif:   notif,
		audit:   audit,
		repo:    repo,
		orch:    orch,
	}
	a.disp = bot.New(ad, notif, orch, audit, log)
	a.sweeper = sweep.New(mapSweepConfig(cfg), orch, a.dispatchResult, audit, log)
	return a, nil
}

// Done is closed when the run context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start launches the long-running bot: update dispatch, the sweep
// schedule, the notifier pipeline, and config hot-reload.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true))

	a.notif.Start(a.sup.Context())
	if err := a.sweeper.Start(a.sup.Context()); err != nil {
		return err
	}

	a.sup.Go("bot.dispatch", func(c context.Context) error {
		return a.disp.Run(c)
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return nil
			case newCfg, ok := <-sub:
				if !ok {
					return nil
				}
				a.applyReload(newCfg)
			}
		}
	})

	a.log.Info("app started")
	return nil
}

// applyReload applies what can change live. Logging is hot; everything
// else needs a restart and says so.
func (a *App) applyReload(cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.logs.Apply(mapLogxConfig(cfg))
	a.log.Info("config reloaded; non-logging changes take effect on restart")
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")
	a.sup.Cancel()

	// Bound each shutdown step so one component cannot stall the stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()
		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name))
		}
	}

	step("sweep", 2*time.Second, func(c context.Context) error { a.sweeper.Stop(c); return nil })
	step("notifier", 2*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("storage", time.Second, func(c context.Context) error {
		if a.audit != nil {
			return a.audit.Close()
		}
		return nil
	})
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	err := a.logs.Close()
	return err
}

// dispatchResult fans a run's batches out to their chats. It is the sweep
// sink and is reused by the one-shot check mode (synchronously there).
func (a *App) dispatchResult(ctx context.Context, res reconcile.Result) {
	for _, b := range res.Batches {
		n, ok := batchNotification(b)
		if !ok {
			continue
		}
		if err := a.notif.Notify(n); err != nil {
			a.log.Warn("batch notification not queued", logx.Err(err), logx.String("user", b.UserID))
		}
	}
}

func batchNotification(b reconcile.Batch) (transport.Notification, bool) {
	chatID, err := strconv.ParseInt(b.UserID, 10, 64)
	if err != nil {
		return transport.Notification{}, false
	}
	text, kb := report.Batch(b)
	return transport.Notification{
		Target:  transport.ChatTarget{ChatID: chatID},
		Text:    text,
		Options: &transport.SendOptions{ParseMode: "HTML", DisablePreview: true, ReplyMarkup: kb},
	}, true
}
