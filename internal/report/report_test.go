package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackbot/internal/reconcile"
	"trackbot/internal/track"
)

func TestBatchRendersLinesAndControls(t *testing.T) {
	b := reconcile.Batch{
		UserID: "u1",
		Lines: []reconcile.Line{
			{
				Number:   "N2512345678",
				Carrier:  track.CarrierUniUni,
				Header:   track.HeaderActive,
				Summary:  "Out for delivery (Burnaby, BC) @ 2025-01-02 08:15",
				DeepLink: "https://www.uniuni.com/tracking/?no=N2512345678",
				Changed:  true,
			},
			{
				Number:   "1Z999AA10123456784",
				Carrier:  track.CarrierUPS,
				Header:   track.HeaderLink,
				Summary:  "use the tracking link",
				DeepLink: "https://www.ups.com/track?tracknum=1Z999AA10123456784",
				LinkMode: true,
			},
		},
	}

	text, kb := Batch(b)
	assert.Contains(t, text, "Package update")
	assert.Contains(t, text, "UniUni")
	assert.Contains(t, text, `<a href="https://www.uniuni.com/tracking/?no=N2512345678">`)
	assert.Contains(t, text, "Out for delivery")

	require.NotNil(t, kb)
	var buttons []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			buttons = append(buttons, btn.Data)
		}
	}
	joined := strings.Join(buttons, "|")
	assert.Contains(t, joined, "track:refresh")
	assert.Contains(t, joined, "track:hist:N2512345678")
	assert.NotContains(t, joined, "track:hist:1Z999AA10123456784", "link-mode packages get no history control")
}

func TestBatchForcedHeader(t *testing.T) {
	b := reconcile.Batch{Forced: true, Lines: []reconcile.Line{{Number: "X", Carrier: track.CarrierUniUni, Summary: "s"}}}
	text, _ := Batch(b)
	assert.Contains(t, text, "Full status report")
}

func TestBatchSummaryTruncated(t *testing.T) {
	long := strings.Repeat("a", 400)
	b := reconcile.Batch{Lines: []reconcile.Line{{Number: "X", Carrier: track.CarrierUniUni, Summary: long}}}
	text, _ := Batch(b)
	assert.NotContains(t, text, long)
	assert.Contains(t, text, "…")
}

func TestBatchEmptyList(t *testing.T) {
	text, kb := Batch(reconcile.Batch{UserID: "u1", Empty: true})
	assert.Contains(t, text, "empty")
	require.NotNil(t, kb)
}

func TestHistoryBounded(t *testing.T) {
	snap := track.Snapshot{Carrier: track.CarrierUniUni, Header: track.HeaderActive}
	for i := 0; i < 20; i++ {
		snap.History = append(snap.History, track.Event{
			Time:        "2025-01-02 08:15",
			Description: "event",
		})
	}

	text := History("N2512345678", snap)
	assert.Contains(t, text, "1. event")
	assert.Contains(t, text, "15. event")
	assert.NotContains(t, text, "16. event")
	assert.Contains(t, text, "5 earlier events not shown")
}

func TestHistoryErrorSnapshot(t *testing.T) {
	snap := track.ErrorSnapshot(track.CarrierFedEx, "123456789012", "HTTP 503")
	text := History("123456789012", snap)
	assert.Contains(t, text, "HTTP 503")
}

func TestHistoryNoEvents(t *testing.T) {
	snap := track.Snapshot{Carrier: track.CarrierUniUni, Header: track.HeaderLabelCreated}
	text := History("N25", snap)
	assert.Contains(t, text, "No scan events yet")
}
