package authflow

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type recordedCall struct {
	provider string
	sub      Submission
}

type fakeCapability struct {
	mu        sync.Mutex
	calls     []recordedCall
	err       error
	errByFlow map[Flow]error
	user      *UserRecord
	signOuts  int
	block     chan struct{}
}

func (f *fakeCapability) SignIn(ctx context.Context, providerID string, sub Submission) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	copied := make(Submission, len(sub))
	for k, v := range sub {
		copied[k] = v
	}
	f.calls = append(f.calls, recordedCall{provider: providerID, sub: copied})
	f.mu.Unlock()

	if err, ok := f.errByFlow[sub.Flow()]; ok {
		return err
	}
	return f.err
}

func (f *fakeCapability) SignOut(context.Context) error {
	f.mu.Lock()
	f.signOuts++
	f.mu.Unlock()
	return nil
}

func (f *fakeCapability) CurrentUser(context.Context) (*UserRecord, error) {
	if f.user == nil {
		return nil, ErrNoUser
	}
	return f.user, nil
}

func (f *fakeCapability) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeCapability) lastCall(t *testing.T) recordedCall {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatalf("expected at least one capability call")
	}
	return f.calls[len(f.calls)-1]
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

func newTestFlows(t *testing.T, cap Capability) *Flows {
	t.Helper()

	cfg := defaultConfig()
	cfg.Flow.SandboxSuffix = "@sandbox.test"
	cfg.Metrics.Enabled = true

	flows, err := New().WithConfig(cfg).WithCapability(cap).Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(flows.Close)

	return flows
}
