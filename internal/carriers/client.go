// Package carriers implements one adapter per carrier behind a single
// no-fail Client interface. Every failure mode (network, auth, malformed
// payload, not-found) is caught at this boundary and mapped to an
// error-class snapshot, so one package's fetch can never abort a sweep.
package carriers

import (
	"context"
	"fmt"
	"time"

	"trackbot/internal/track"
	"trackbot/pkg/logx"
)

// Client fetches the normalized tracking snapshot for one number.
// Implementations never return an error; failures surface as snapshots
// with track.HeaderError and a human-readable failure class.
type Client interface {
	Fetch(ctx context.Context, number string, withHistory bool) track.Snapshot
}

type Config struct {
	// Timeout bounds one carrier HTTP call so a stuck backend cannot
	// stall the whole sweep. Defaults to 15s.
	Timeout time.Duration

	UniUni UniUniConfig
	FedEx  FedExConfig
}

type UniUniConfig struct {
	BaseURL string
}

type FedExConfig struct {
	APIURL    string
	APIKey    string
	APISecret string
}

const defaultTimeout = 15 * time.Second

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

// Registry owns the closed set of carrier adapters. Adding a carrier means
// one new Client plus one classification rule in track.Classify; the
// orchestrator never changes.
type Registry struct {
	uniuni Client
	fedex  Client
	ups    Client
}

func NewRegistry(cfg Config, log logx.Logger) *Registry {
	return &Registry{
		uniuni: newSafeClient(newUniUni(cfg, log.With(logx.String("carrier", "uniuni"))), track.CarrierUniUni, log),
		fedex:  newSafeClient(newFedEx(cfg, log.With(logx.String("carrier", "fedex"))), track.CarrierFedEx, log),
		ups:    newSafeClient(newUPS(), track.CarrierUPS, log),
	}
}

// For returns the adapter owning the carrier. Unknown falls back to the
// default carrier's adapter, mirroring track.Classify.
func (r *Registry) For(c track.Carrier) Client {
	switch c {
	case track.CarrierFedEx:
		return r.fedex
	case track.CarrierUPS:
		return r.ups
	default:
		return r.uniuni
	}
}

// Fetch classifies and fetches in one step; this is the orchestrator's
// entry point.
func (r *Registry) Fetch(ctx context.Context, number string, withHistory bool) track.Snapshot {
	return r.For(track.Classify(number)).Fetch(ctx, number, withHistory)
}

func systemError(c track.Carrier, number string, cause error) track.Snapshot {
	return track.ErrorSnapshot(c, number, fmt.Sprintf("System Error: %v", cause))
}
