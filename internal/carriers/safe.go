package carriers

import (
	"context"
	"fmt"
	"runtime/debug"

	"trackbot/internal/track"
	"trackbot/pkg/logx"
)

// safeClient is the last line of defense for the no-fail contract: if an
// adapter panics past its own error mapping, the panic is converted into a
// System Error snapshot instead of taking down the sweep.
type safeClient struct {
	inner   Client
	carrier track.Carrier
	log     logx.Logger
}

func newSafeClient(inner Client, carrier track.Carrier, log logx.Logger) Client {
	return &safeClient{inner: inner, carrier: carrier, log: log}
}

func (s *safeClient) Fetch(ctx context.Context, number string, withHistory bool) (snap track.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in carrier adapter",
				logx.String("carrier", string(s.carrier)),
				logx.String("number", number),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
			snap = track.ErrorSnapshot(s.carrier, number, fmt.Sprintf("System Error: %v", r))
		}
	}()
	return s.inner.Fetch(ctx, number, withHistory)
}
