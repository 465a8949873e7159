package carriers

import (
	"context"

	"trackbot/internal/track"
)

// upsClient is a link-mode adapter: UPS blocks automated access, so the
// snapshot is constant and only points the user at the tracking page.
// Link snapshots are exempt from change detection and never carry history.
type upsClient struct{}

func newUPS() *upsClient { return &upsClient{} }

const upsSummary = "Automated UPS tracking is not available; use the tracking link."

func (c *upsClient) Fetch(_ context.Context, number string, _ bool) track.Snapshot {
	return track.Snapshot{
		Carrier:  track.CarrierUPS,
		Header:   track.HeaderLink,
		Summary:  upsSummary,
		DeepLink: track.CarrierUPS.DeepLink(number),
	}
}
