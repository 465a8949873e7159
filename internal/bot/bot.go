// Package bot is the Telegram front-end: it consumes transport updates and
// maps menu commands, inline buttons, and the add-package reply flow onto
// reconciliation operations. Every user-triggered action produces exactly
// one visible response.
package bot

import (
	"context"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"trackbot/internal/reconcile"
	"trackbot/internal/report"
	"trackbot/internal/storage"
	"trackbot/internal/transport"
	"trackbot/pkg/logx"
	"trackbot/pkg/tgui"
)

// AddPrompt is sent with force_reply; a reply to this exact text carries
// the tracking number to register.
const AddPrompt = "Please reply with the tracking number:"

// Sender delivers outbound messages (the notifier pipeline in production).
type Sender interface {
	Send(ctx context.Context, n transport.Notification) error
}

type Dispatcher struct {
	adapter transport.Adapter
	sender  Sender
	orch    *reconcile.Orchestrator
	audit   storage.Store
	log     logx.Logger
}

func New(adapter transport.Adapter, sender Sender, orch *reconcile.Orchestrator, audit storage.Store, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		adapter: adapter,
		sender:  sender,
		orch:    orch,
		audit:   audit,
		log:     log.With(logx.String("comp", "bot")),
	}
}

// Run consumes updates until ctx is done. The adapter owns the polling
// goroutine; Run owns dispatch.
func (d *Dispatcher) Run(ctx context.Context) error {
	updates := make(chan transport.Update, 64)
	if err := d.adapter.Start(ctx, updates); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			d.dispatch(ctx, u)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, u transport.Update) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("update handler panicked",
				logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()

	switch u.Kind {
	case transport.UpdateMessage:
		if u.Message != nil {
			d.handleMessage(ctx, *u.Message)
		}
	case transport.UpdateCallback:
		if u.Callback != nil {
			d.handleCallback(ctx, *u.Callback)
		}
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, m transport.Message) {
	text := strings.TrimSpace(m.Text)
	switch {
	case text == "/start" || strings.HasPrefix(text, "/start@"):
		d.send(ctx, m.ChatID, mainMenu())
	case strings.TrimSpace(m.ReplyToText) == AddPrompt:
		d.handleAdd(ctx, m.ChatID, text)
	}
}

func (d *Dispatcher) handleCallback(ctx context.Context, cb transport.Callback) {
	plugin, action, payload := tgui.SplitData(cb.Data)
	if plugin != report.CBPlugin {
		return
	}
	ref := transport.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
	userID := chatKey(cb.ChatID)

	switch action {
	case report.ActionMainMenu:
		d.answer(ctx, cb.ID, "")
		d.edit(ctx, ref, mainMenu())
	case report.ActionManage:
		d.answer(ctx, cb.ID, "")
		d.edit(ctx, ref, manageMenu(len(d.orch.Tracked(userID))))
	case report.ActionList:
		d.answer(ctx, cb.ID, "")
		d.edit(ctx, ref, listView(d.orch.Tracked(userID)))
	case report.ActionAdd:
		d.answer(ctx, cb.ID, "")
		err := d.sender.Send(ctx, transport.Notification{
			Target:  transport.ChatTarget{ChatID: cb.ChatID},
			Text:    AddPrompt,
			Options: &transport.SendOptions{ForceReply: true},
		})
		if err != nil {
			d.log.Error("send failed", logx.Err(err), logx.Int64("chat_id", cb.ChatID))
		}
	case report.ActionDelMenu:
		d.answer(ctx, cb.ID, "")
		d.edit(ctx, ref, deleteMenu(d.orch.Tracked(userID)))
	case report.ActionDelete:
		d.handleDelete(ctx, cb, ref, userID, payload)
	case report.ActionHistory:
		d.handleHistory(ctx, cb, payload)
	case report.ActionRefresh:
		d.handleRefresh(ctx, cb, ref, userID)
	default:
		d.answer(ctx, cb.ID, "")
	}
}

func (d *Dispatcher) handleAdd(ctx context.Context, chatID int64, number string) {
	if number == "" {
		d.send(ctx, chatID, view{text: tgui.Esc("That doesn't look like a tracking number. Use Manage to try again.").String()})
		return
	}
	userID := chatKey(chatID)
	line, ok := d.orch.Add(ctx, userID, number)
	d.appendAudit(ctx, userID, "add", number, ok)
	if !ok {
		d.send(ctx, chatID, view{
			text: tgui.JoinH(" ", tgui.Esc("Already tracking"), tgui.Code(number)).String(),
		})
		return
	}
	text, kb := report.Batch(reconcile.Batch{UserID: userID, Lines: []reconcile.Line{line}})
	d.send(ctx, chatID, view{text: text, markup: kb})
}

func (d *Dispatcher) handleDelete(ctx context.Context, cb transport.Callback, ref transport.MessageRef, userID, number string) {
	ok := d.orch.Delete(userID, number)
	d.appendAudit(ctx, userID, "delete", number, ok)
	if ok {
		d.answer(ctx, cb.ID, "Deleted "+number)
	} else {
		d.answer(ctx, cb.ID, "Not tracked: "+number)
	}
	remaining := d.orch.Tracked(userID)
	if len(remaining) == 0 {
		d.edit(ctx, ref, manageMenu(0))
		return
	}
	d.edit(ctx, ref, deleteMenu(remaining))
}

func (d *Dispatcher) handleHistory(ctx context.Context, cb transport.Callback, number string) {
	d.answer(ctx, cb.ID, "Fetching history…")
	snap := d.orch.History(ctx, number)
	d.appendAudit(ctx, chatKey(cb.ChatID), "history", number, !snap.Failed())
	d.send(ctx, cb.ChatID, view{text: report.History(number, snap)})
}

func (d *Dispatcher) handleRefresh(ctx context.Context, cb transport.Callback, ref transport.MessageRef, userID string) {
	d.answer(ctx, cb.ID, "Checking…")
	d.edit(ctx, ref, view{text: tgui.I("⏳ Checking your packages…").String()})

	res := d.orch.Run(ctx, reconcile.OneUser(userID), true)
	d.appendAudit(ctx, userID, "refresh", "", true)

	// One-user scope always yields exactly one batch under force.
	batch := reconcile.Batch{UserID: userID, Empty: true}
	if len(res.Batches) > 0 {
		batch = res.Batches[0]
	}
	text, kb := report.Batch(batch)
	d.edit(ctx, ref, view{text: text, markup: kb})
}

// view is one rendered screen: HTML text plus optional inline keyboard.
type view struct {
	text   string
	markup any
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, v view) {
	err := d.sender.Send(ctx, transport.Notification{
		Target:  transport.ChatTarget{ChatID: chatID},
		Text:    v.text,
		Options: &transport.SendOptions{ParseMode: "HTML", DisablePreview: true, ReplyMarkup: v.markup},
	})
	if err != nil {
		d.log.Error("send failed", logx.Err(err), logx.Int64("chat_id", chatID))
	}
}

func (d *Dispatcher) edit(ctx context.Context, ref transport.MessageRef, v view) {
	err := d.sender.Send(ctx, transport.Notification{
		Target:  transport.ChatTarget{ChatID: ref.ChatID},
		Text:    v.text,
		Options: &transport.SendOptions{ParseMode: "HTML", DisablePreview: true, ReplyMarkup: v.markup},
		Edit:    &ref,
	})
	if err != nil {
		d.log.Error("edit failed", logx.Err(err), logx.Int64("chat_id", ref.ChatID))
	}
}

func (d *Dispatcher) answer(ctx context.Context, callbackID, text string) {
	if err := d.adapter.AnswerCallback(ctx, callbackID, text); err != nil {
		d.log.Debug("callback answer failed", logx.Err(err))
	}
}

func (d *Dispatcher) appendAudit(ctx context.Context, userID, action, target string, ok bool) {
	if d.audit == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := d.audit.AppendAction(cctx, storage.ActionEntry{
		At:     time.Now(),
		UserID: userID,
		Action: action,
		Target: target,
		OK:     ok,
	})
	if err != nil {
		d.log.Warn("audit append failed", logx.Err(err))
	}
}

func chatKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
