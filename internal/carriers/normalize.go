package carriers

import (
	"sort"
	"strings"
	"time"

	"trackbot/internal/track"
)

func unixUTC(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

// rawEvent is a carrier checkpoint before normalization. When is zero if
// the carrier timestamp could not be parsed; WhenRaw is kept for display.
type rawEvent struct {
	When timeOrRaw
	Desc string
	Loc  string
}

type timeOrRaw struct {
	Parsed bool
	Unix   int64
	Raw    string
}

func (t timeOrRaw) display() string {
	if t.Parsed {
		return track.FormatEventTime(unixUTC(t.Unix))
	}
	return strings.TrimSpace(t.Raw)
}

// buildSnapshot turns a carrier's raw checkpoints into the normalized
// snapshot. Events are ordered most-recent-first; the latest event (index
// 0) drives the summary line and the status header.
//
// markExceptions enables the "Exception" header for carriers that surface
// delivery exceptions in scan descriptions (FedEx).
func buildSnapshot(c track.Carrier, number string, events []rawEvent, withHistory, markExceptions bool) track.Snapshot {
	snap := track.Snapshot{Carrier: c, DeepLink: c.DeepLink(number)}

	if len(events) == 0 {
		snap.Header = track.HeaderLabelCreated
		snap.Summary = string(track.HeaderLabelCreated)
		return snap
	}

	// Guarantee the most-recent-first invariant regardless of payload
	// order. Unparsed timestamps keep their relative position.
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].When.Parsed || !events[j].When.Parsed {
			return false
		}
		return events[i].When.Unix > events[j].When.Unix
	})

	latest := events[0]
	snap.Summary = track.RenderEvent(track.Event{
		Time:        latest.When.display(),
		Description: latest.Desc,
		Location:    latest.Loc,
	})
	snap.Header = headerFor(latest.Desc, markExceptions)

	if withHistory {
		snap.History = make([]track.Event, 0, len(events))
		for _, e := range events {
			snap.History = append(snap.History, track.Event{
				Time:        e.When.display(),
				Description: e.Desc,
				Location:    e.Loc,
			})
		}
	}
	return snap
}

func headerFor(desc string, markExceptions bool) track.Header {
	d := strings.ToLower(desc)
	if markExceptions && strings.Contains(d, "exception") {
		return track.HeaderException
	}
	if strings.Contains(d, "delivered") {
		return track.HeaderDelivered
	}
	return track.HeaderActive
}
