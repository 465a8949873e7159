// Package report renders reconciliation batches and history views into
// Telegram HTML messages with their inline controls.
package report

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"trackbot/internal/reconcile"
	"trackbot/internal/track"
	"trackbot/pkg/tgui"
)

// Callback namespace shared with the bot dispatcher.
const (
	CBPlugin = "track"

	ActionRefresh  = "refresh"
	ActionManage   = "manage"
	ActionList     = "list"
	ActionAdd      = "add"
	ActionDelMenu  = "delmenu"
	ActionDelete   = "del"
	ActionHistory  = "hist"
	ActionMainMenu = "menu"
)

// summaryDisplayLimit bounds one report line's summary; the stored
// comparison value is never truncated, only the display.
const summaryDisplayLimit = 180

// historyDisplayLimit bounds the on-demand history view to the most
// recent events; older ones collapse into a truncation marker.
const historyDisplayLimit = 15

// Batch renders one user's notification: header, one block per package,
// and the action controls (refresh + per non-link-mode history buttons).
func Batch(b reconcile.Batch) (string, *tele.ReplyMarkup) {
	if b.Empty {
		text := tgui.JoinH("\n",
			tgui.B("📦 Package Tracker"),
			tgui.Esc("Your tracking list is empty. Use Manage to add a number."),
		)
		kb := tgui.NewInline().
			Row(tgui.Btn("📝 Manage Tracking Numbers", tgui.Data(CBPlugin, ActionManage, "")))
		return text.String(), kb.Markup()
	}

	header := "📦 Package update"
	if b.Forced {
		header = "📦 Full status report"
	}

	parts := []tgui.H{tgui.B(header)}
	for _, l := range b.Lines {
		parts = append(parts, line(l))
	}
	text := tgui.JoinH("\n\n", parts...)

	kb := tgui.NewInline().
		Row(tgui.Btn("🔄 Refresh Status (Force Check)", tgui.Data(CBPlugin, ActionRefresh, "")))
	for _, l := range b.Lines {
		if l.LinkMode {
			continue
		}
		kb.Row(tgui.Btn("🕘 History "+l.Number, tgui.Data(CBPlugin, ActionHistory, l.Number)))
	}
	return text.String(), kb.Markup()
}

func line(l reconcile.Line) tgui.H {
	number := tgui.Code(l.Number)
	if l.DeepLink != "" {
		number = tgui.Link(l.Number, l.DeepLink)
	}
	head := tgui.JoinH(" ", tgui.B(string(l.Carrier)), number)
	return tgui.JoinH("\n", head, tgui.Esc(tgui.TruncRunes(l.Summary, summaryDisplayLimit)))
}

// History renders a package's event history, most recent first, bounded
// to the display limit with a marker for anything older.
func History(number string, snap track.Snapshot) string {
	head := tgui.JoinH(" ", tgui.B("🕘 History"), tgui.Code(number), tgui.Esc("— "+string(snap.Header)))

	if snap.Failed() {
		return tgui.JoinH("\n", head, tgui.Esc(snap.Summary)).String()
	}
	if len(snap.History) == 0 {
		return tgui.JoinH("\n", head, tgui.I("No scan events yet.")).String()
	}

	parts := []tgui.H{head}
	shown := snap.History
	if len(shown) > historyDisplayLimit {
		shown = shown[:historyDisplayLimit]
	}
	for i, e := range shown {
		rendered := tgui.TruncRunes(track.RenderEvent(e), summaryDisplayLimit)
		parts = append(parts, tgui.Esc(fmt.Sprintf("%d. %s", i+1, rendered)))
	}
	if extra := len(snap.History) - len(shown); extra > 0 {
		parts = append(parts, tgui.I(fmt.Sprintf("… %d earlier events not shown", extra)))
	}
	return tgui.JoinH("\n", parts...).String()
}
