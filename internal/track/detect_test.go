package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangedComparesSummaryLine(t *testing.T) {
	p := Package{Number: "N2512345678", LastStatus: "Active", LastDetails: "A"}

	snap := Snapshot{Carrier: CarrierUniUni, Header: HeaderActive, Summary: "B"}
	require.True(t, Changed(p, snap))

	// Same header, same summary: no change even though time passed.
	snap.Summary = "A"
	require.False(t, Changed(p, snap))

	// Header alone changing is not enough; the summary is the key.
	snap.Header = HeaderDelivered
	require.False(t, Changed(p, snap))
}

func TestChangedUPSExemption(t *testing.T) {
	p := Package{Number: "1Z999AA10123456784", LastStatus: "New"}
	snap := Snapshot{Carrier: CarrierUPS, Header: HeaderLink, Summary: "anything at all"}
	assert.False(t, Changed(p, snap), "link-mode carriers never auto-notify")
}

func TestApplySnapshot(t *testing.T) {
	p := NewPackage("N2512345678")
	require.Equal(t, "New", p.LastStatus)
	require.Empty(t, p.LastDetails)

	ApplySnapshot(&p, Snapshot{Header: HeaderDelivered, Summary: "Delivered @ 2025-01-02 10:00"})
	assert.Equal(t, "Delivered", p.LastStatus)
	assert.Equal(t, "Delivered @ 2025-01-02 10:00", p.LastDetails)
}

func TestRenderEvent(t *testing.T) {
	assert.Equal(t, "Out for delivery (Vancouver, BC) @ 2025-01-02 08:15",
		RenderEvent(Event{Time: "2025-01-02 08:15", Description: "Out for delivery", Location: "Vancouver, BC"}))

	// Empty location is omitted.
	assert.Equal(t, "Label created @ 2025-01-01 12:00",
		RenderEvent(Event{Time: "2025-01-01 12:00", Description: "Label created"}))

	// Location already embedded in the description is not repeated.
	assert.Equal(t, "Arrived at Vancouver facility @ 2025-01-02 03:00",
		RenderEvent(Event{Time: "2025-01-02 03:00", Description: "Arrived at Vancouver facility", Location: "Vancouver"}))

	// Missing time drops the suffix.
	assert.Equal(t, "In transit (Richmond)",
		RenderEvent(Event{Description: "In transit", Location: "Richmond"}))
}
