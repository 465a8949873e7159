package sweep

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackbot/internal/reconcile"
	"trackbot/pkg/logx"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls int
	block chan struct{} // when non-nil, Run blocks until closed
	res   reconcile.Result
}

func (f *fakeRunner) Run(ctx context.Context, scope reconcile.Scope, force bool) reconcile.Result {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.res
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRunOnceDeliversToSink(t *testing.T) {
	r := &fakeRunner{res: reconcile.Result{Dirty: true, Users: 2}}
	var got []reconcile.Result
	svc := New(Config{}, r, func(ctx context.Context, res reconcile.Result) {
		got = append(got, res)
	}, nil, logx.Nop())

	res := svc.RunOnce(context.Background())
	assert.True(t, res.Dirty)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Users)
}

func TestTickSkipsWhileRunning(t *testing.T) {
	r := &fakeRunner{block: make(chan struct{})}
	svc := New(Config{}, r, nil, nil, logx.Nop())
	svc.baseCtx = context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.tick()
	}()

	// Wait for the first tick to enter the runner.
	require.Eventually(t, func() bool { return r.callCount() == 1 },
		time.Second, 5*time.Millisecond)

	// Overlapping trigger must be a no-op.
	svc.tick()
	assert.Equal(t, 1, r.callCount())

	close(r.block)
	<-done
}

func TestStartDisabledIsNoop(t *testing.T) {
	svc := New(Config{Enabled: false}, &fakeRunner{}, nil, nil, logx.Nop())
	require.NoError(t, svc.Start(context.Background()))
	svc.Stop(context.Background())
}

func TestStartRejectsBadTimezone(t *testing.T) {
	svc := New(Config{Enabled: true, Timezone: "Nope/Nowhere"}, &fakeRunner{}, nil, nil, logx.Nop())
	require.Error(t, svc.Start(context.Background()))
}

func TestStartAndStop(t *testing.T) {
	svc := New(Config{Enabled: true, Schedule: "* * * * *"}, &fakeRunner{}, nil, nil, logx.Nop())
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	require.NoError(t, svc.Start(ctx)) // idempotent
	svc.Stop(ctx)
	svc.Stop(ctx) // idempotent
}
