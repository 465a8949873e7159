package track

import (
	"strings"
	"time"
)

// Header is the coarse status bucket of a snapshot. It is display-oriented;
// change detection compares the rendered summary line, not the header,
// because a package can see several real-world updates while staying Active.
type Header string

const (
	HeaderNew          Header = "New"
	HeaderActive       Header = "Active"
	HeaderDelivered    Header = "Delivered"
	HeaderException    Header = "Exception"
	HeaderLabelCreated Header = "Label Created"

	// HeaderLink marks carriers served only by a deep link (UPS).
	// Link snapshots never trigger change detection.
	HeaderLink Header = "Link"

	// HeaderError classifies every adapter failure mode; the summary line
	// carries the human-readable failure class ("No Data", "Auth Error", ...).
	HeaderError Header = "Error"
)

// Event is one normalized carrier scan/checkpoint.
type Event struct {
	Time        string
	Description string
	Location    string
}

// Snapshot is the normalized result of one adapter fetch.
// History is ordered most-recent-first; the latest event is History[0].
type Snapshot struct {
	Carrier  Carrier
	Header   Header
	Summary  string
	History  []Event
	DeepLink string
}

// Failed reports whether the snapshot describes an adapter failure
// rather than carrier data.
func (s Snapshot) Failed() bool { return s.Header == HeaderError }

// ErrorSnapshot builds the failure-class snapshot adapters return instead
// of raising. The summary names the failure class.
func ErrorSnapshot(c Carrier, number, summary string) Snapshot {
	return Snapshot{
		Carrier:  c,
		Header:   HeaderError,
		Summary:  summary,
		DeepLink: c.DeepLink(number),
	}
}

// RenderEvent folds one checkpoint into the display/comparison form:
// "{description} ({location}) @ {time}". The parenthesized location is
// omitted when empty or already embedded in the description.
func RenderEvent(e Event) string {
	var b strings.Builder
	b.WriteString(e.Description)
	loc := strings.TrimSpace(e.Location)
	if loc != "" && !strings.Contains(strings.ToLower(e.Description), strings.ToLower(loc)) {
		b.WriteString(" (" + loc + ")")
	}
	if strings.TrimSpace(e.Time) != "" {
		b.WriteString(" @ " + e.Time)
	}
	return b.String()
}

// FormatEventTime is the common display form for parsed carrier timestamps.
func FormatEventTime(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}
