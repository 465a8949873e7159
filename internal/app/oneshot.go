package app

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"trackbot/internal/reconcile"
	"trackbot/internal/report"
	"trackbot/internal/storage"
	"trackbot/internal/transport"
	"trackbot/pkg/logx"
)

// One-shot modes run a single operation and exit; the boolean result is
// the "state changed" signal the caller prints.
const (
	ModeCheck   = "check"
	ModeAdd     = "add"
	ModeDelete  = "delete"
	ModeHistory = "history"
)

type OneShot struct {
	Mode   string
	Number string
	User   string // chat id; defaults to telegram.admin_chat_id
	Force  bool
}

// RunOnce executes one mode synchronously: notifications are delivered
// before it returns, nothing is left queued.
func (a *App) RunOnce(ctx context.Context, op OneShot) (changed bool, err error) {
	user, err := a.resolveUser(op.User)
	if err != nil {
		// check without -user sweeps all users and needs no target chat.
		if !(op.Mode == ModeCheck && op.User == "") {
			return false, err
		}
	}

	switch op.Mode {
	case ModeCheck:
		return a.runCheck(ctx, op, user)
	case ModeAdd:
		if op.Number == "" {
			return false, errors.New("add mode requires -number")
		}
		line, ok := a.orch.Add(ctx, user, op.Number)
		a.appendAction(ctx, user, "add", op.Number, ok)
		if !ok {
			return false, nil
		}
		a.sendBatch(ctx, reconcile.Batch{UserID: user, Lines: []reconcile.Line{line}})
		return true, nil
	case ModeDelete:
		if op.Number == "" {
			return false, errors.New("delete mode requires -number")
		}
		ok := a.orch.Delete(user, op.Number)
		a.appendAction(ctx, user, "delete", op.Number, ok)
		return ok, nil
	case ModeHistory:
		if op.Number == "" {
			return false, errors.New("history mode requires -number")
		}
		snap := a.orch.History(ctx, op.Number)
		a.appendAction(ctx, user, "history", op.Number, !snap.Failed())
		a.sendText(ctx, user, report.History(op.Number, snap))
		return false, nil
	default:
		return false, errors.Errorf("unknown mode %q", op.Mode)
	}
}

func (a *App) runCheck(ctx context.Context, op OneShot, user string) (bool, error) {
	scope := reconcile.AllUsers()
	scopeName := "all"
	if op.User != "" {
		scope = reconcile.OneUser(user)
		scopeName = user
	}
	res := a.orch.Run(ctx, scope, op.Force)
	for _, b := range res.Batches {
		a.sendBatch(ctx, b)
	}
	if a.audit != nil {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_ = a.audit.AppendRun(cctx, storage.RunEntry{
			At:       time.Now(),
			Scope:    scopeName,
			Forced:   op.Force,
			Users:    res.Users,
			Packages: res.Packages,
			Notified: len(res.Batches),
			Dirty:    res.Dirty,
			TookMS:   res.Took.Milliseconds(),
		})
	}
	return res.Dirty, nil
}

func (a *App) resolveUser(user string) (string, error) {
	if user != "" {
		if _, err := strconv.ParseInt(user, 10, 64); err != nil {
			return "", errors.Wrap(err, "-user must be a chat id")
		}
		return user, nil
	}
	cfg := a.cfgm.Get()
	if cfg == nil || cfg.Telegram.AdminChatID == 0 {
		return "", errors.New("no -user given and telegram.admin_chat_id is not set")
	}
	return strconv.FormatInt(cfg.Telegram.AdminChatID, 10), nil
}

func (a *App) sendBatch(ctx context.Context, b reconcile.Batch) {
	n, ok := batchNotification(b)
	if !ok {
		return
	}
	if err := a.notif.Send(ctx, n); err != nil {
		a.log.Warn("batch send failed", logx.Err(err), logx.String("user", b.UserID))
	}
}

func (a *App) sendText(ctx context.Context, user, text string) {
	chatID, err := strconv.ParseInt(user, 10, 64)
	if err != nil {
		return
	}
	err = a.notif.Send(ctx, transport.Notification{
		Target:  transport.ChatTarget{ChatID: chatID},
		Text:    text,
		Options: &transport.SendOptions{ParseMode: "HTML", DisablePreview: true},
	})
	if err != nil {
		a.log.Warn("send failed", logx.Err(err), logx.String("user", user))
	}
}

func (a *App) appendAction(ctx context.Context, user, action, target string, ok bool) {
	if a.audit == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := a.audit.AppendAction(cctx, storage.ActionEntry{
		At:     time.Now(),
		UserID: user,
		Action: action,
		Target: target,
		OK:     ok,
	})
	if err != nil {
		a.log.Warn("audit append failed", logx.Err(err))
	}
}
