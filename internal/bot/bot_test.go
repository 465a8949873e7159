package bot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"trackbot/internal/reconcile"
	"trackbot/internal/store"
	"trackbot/internal/track"
	"trackbot/internal/transport"
	"trackbot/pkg/logx"
)

type fakeFetcher struct {
	snaps map[string]track.Snapshot
}

func (f *fakeFetcher) Fetch(_ context.Context, number string, withHistory bool) track.Snapshot {
	if s, ok := f.snaps[number]; ok {
		if !withHistory {
			s.History = nil
		}
		return s
	}
	return track.ErrorSnapshot(track.Classify(number), number, "No Data")
}

// recorder captures everything the dispatcher emits.
type recorder struct {
	sent    []transport.Notification
	answers []string
}

func (r *recorder) Send(_ context.Context, n transport.Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

func (r *recorder) Start(ctx context.Context, out chan<- transport.Update) error { return nil }
func (r *recorder) Stop(ctx context.Context) error                               { return nil }
func (r *recorder) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	return transport.MessageRef{}, nil
}
func (r *recorder) EditText(ctx context.Context, ref transport.MessageRef, text string, opt *transport.SendOptions) error {
	return nil
}
func (r *recorder) AnswerCallback(ctx context.Context, callbackID, text string) error {
	r.answers = append(r.answers, text)
	return nil
}

func newTestBot(t *testing.T, snaps map[string]track.Snapshot, seed func(*store.Store)) (*Dispatcher, *recorder) {
	t.Helper()
	repo := store.NewRepository(filepath.Join(t.TempDir(), "tracking.json"), "100", logx.Nop())
	if seed != nil {
		s := store.NewStore()
		seed(s)
		repo.Save(s)
	}
	orch := reconcile.New(repo, &fakeFetcher{snaps: snaps}, logx.Nop())
	rec := &recorder{}
	return New(rec, rec, orch, nil, logx.Nop()), rec
}

func buttonData(t *testing.T, markup any) []string {
	t.Helper()
	rm, ok := markup.(*tele.ReplyMarkup)
	require.True(t, ok)
	var out []string
	for _, row := range rm.InlineKeyboard {
		for _, b := range row {
			out = append(out, b.Data)
		}
	}
	return out
}

func callback(data string) transport.Update {
	return transport.Update{Kind: transport.UpdateCallback, Callback: &transport.Callback{
		ID: "cb1", FromID: 100, ChatID: 100, MessageID: 9, Data: data,
	}}
}

func message(text, replyTo string) transport.Update {
	return transport.Update{Kind: transport.UpdateMessage, Message: &transport.Message{
		ID: 1, ChatID: 100, FromID: 100, Text: text, ReplyToText: replyTo,
	}}
}

func TestStartShowsMainMenu(t *testing.T) {
	d, rec := newTestBot(t, nil, nil)
	d.dispatch(context.Background(), message("/start", ""))

	require.Len(t, rec.sent, 1)
	n := rec.sent[0]
	assert.Nil(t, n.Edit)
	assert.Contains(t, n.Text, "Package Tracker")
	assert.Contains(t, buttonData(t, n.Options.ReplyMarkup), "track:refresh")
	assert.Contains(t, buttonData(t, n.Options.ReplyMarkup), "track:manage")
}

func TestManageShowsCount(t *testing.T) {
	d, rec := newTestBot(t, nil, func(s *store.Store) {
		s.AddPackage("100", "JY111")
		s.AddPackage("100", "JY222")
	})
	d.dispatch(context.Background(), callback("track:manage"))

	require.Len(t, rec.sent, 1)
	n := rec.sent[0]
	require.NotNil(t, n.Edit)
	assert.Equal(t, 9, n.Edit.MessageID)
	assert.Contains(t, n.Text, "tracking 2 package(s)")
	assert.Contains(t, buttonData(t, n.Options.ReplyMarkup), "track:add")
	assert.Contains(t, buttonData(t, n.Options.ReplyMarkup), "track:delmenu")
}

func TestListView(t *testing.T) {
	d, rec := newTestBot(t, nil, func(s *store.Store) {
		s.AddPackage("100", "1Z999AA10123456784")
	})
	d.dispatch(context.Background(), callback("track:list"))

	require.Len(t, rec.sent, 1)
	assert.Contains(t, rec.sent[0].Text, "UPS")
	assert.Contains(t, rec.sent[0].Text, "1Z999AA10123456784")
	assert.Contains(t, rec.sent[0].Text, "New")
}

func TestAddFlow(t *testing.T) {
	d, rec := newTestBot(t, map[string]track.Snapshot{
		"JY333": {Carrier: track.CarrierUniUni, Header: track.HeaderActive,
			Summary: "In transit", DeepLink: track.CarrierUniUni.DeepLink("JY333")},
	}, nil)
	ctx := context.Background()

	d.dispatch(ctx, callback("track:add"))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, AddPrompt, rec.sent[0].Text)
	require.NotNil(t, rec.sent[0].Options)
	assert.True(t, rec.sent[0].Options.ForceReply)

	d.dispatch(ctx, message("JY333", AddPrompt))
	require.Len(t, rec.sent, 2)
	assert.Contains(t, rec.sent[1].Text, "JY333")
	assert.Contains(t, rec.sent[1].Text, "In transit")

	// Duplicate add is acknowledged, not re-registered.
	d.dispatch(ctx, message("JY333", AddPrompt))
	require.Len(t, rec.sent, 3)
	assert.Contains(t, rec.sent[2].Text, "Already tracking")

	assert.Len(t, d.orch.Tracked("100"), 1)
}

func TestAddRejectsEmptyReply(t *testing.T) {
	d, rec := newTestBot(t, nil, nil)
	d.dispatch(context.Background(), message("   ", AddPrompt))
	require.Len(t, rec.sent, 1)
	assert.Contains(t, rec.sent[0].Text, "doesn't look like a tracking number")
	assert.Empty(t, d.orch.Tracked("100"))
}

func TestDeleteFlow(t *testing.T) {
	d, rec := newTestBot(t, nil, func(s *store.Store) {
		s.AddPackage("100", "JY111")
		s.AddPackage("100", "JY222")
	})
	ctx := context.Background()

	d.dispatch(ctx, callback("track:delmenu"))
	require.Len(t, rec.sent, 1)
	assert.Contains(t, buttonData(t, rec.sent[0].Options.ReplyMarkup), "track:del:JY111")

	d.dispatch(ctx, callback("track:del:JY111"))
	require.Len(t, rec.sent, 2)
	assert.Contains(t, rec.answers, "Deleted JY111")
	// Remaining package still offered for deletion.
	assert.Contains(t, buttonData(t, rec.sent[1].Options.ReplyMarkup), "track:del:JY222")

	d.dispatch(ctx, callback("track:del:JY222"))
	require.Len(t, rec.sent, 3)
	// Empty list falls back to the manage menu.
	assert.Contains(t, rec.sent[2].Text, "tracking 0 package(s)")

	d.dispatch(ctx, callback("track:del:JY222"))
	assert.Contains(t, rec.answers, "Not tracked: JY222")
}

func TestRefreshEditsInPlace(t *testing.T) {
	d, rec := newTestBot(t, map[string]track.Snapshot{
		"JY111": {Carrier: track.CarrierUniUni, Header: track.HeaderDelivered,
			Summary: "Delivered", DeepLink: track.CarrierUniUni.DeepLink("JY111")},
	}, func(s *store.Store) {
		s.AddPackage("100", "JY111")
	})
	d.dispatch(context.Background(), callback("track:refresh"))

	require.Len(t, rec.sent, 2)
	assert.Contains(t, rec.sent[0].Text, "Checking")
	require.NotNil(t, rec.sent[1].Edit)
	assert.Contains(t, rec.sent[1].Text, "Full status report")
	assert.Contains(t, rec.sent[1].Text, "Delivered")
}

func TestRefreshEmptyList(t *testing.T) {
	d, rec := newTestBot(t, nil, nil)
	d.dispatch(context.Background(), callback("track:refresh"))

	require.Len(t, rec.sent, 2)
	assert.Contains(t, rec.sent[1].Text, "tracking list is empty")
}

func TestHistorySendsNewMessage(t *testing.T) {
	d, rec := newTestBot(t, map[string]track.Snapshot{
		"JY111": {Carrier: track.CarrierUniUni, Header: track.HeaderActive, Summary: "a",
			History: []track.Event{{Time: "2025-01-02 10:00", Description: "Out for delivery"}}},
	}, nil)
	d.dispatch(context.Background(), callback("track:hist:JY111"))

	require.Len(t, rec.sent, 1)
	assert.Nil(t, rec.sent[0].Edit)
	assert.Contains(t, rec.sent[0].Text, "History")
	assert.Contains(t, rec.sent[0].Text, "Out for delivery")
}

func TestForeignCallbackIgnored(t *testing.T) {
	d, rec := newTestBot(t, nil, nil)
	d.dispatch(context.Background(), callback("other:refresh"))
	assert.Empty(t, rec.sent)
	assert.Empty(t, rec.answers)
}

func TestPanicInHandlerIsContained(t *testing.T) {
	d, _ := newTestBot(t, nil, nil)
	assert.NotPanics(t, func() {
		d.dispatch(context.Background(), transport.Update{Kind: transport.UpdateCallback})
	})
}
