package tenant

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallPassesTenantExplicitly(t *testing.T) {
	got, err := Call(context.Background(), "college", func(_ context.Context, tenantID string) (string, error) {
		return "ran as " + tenantID, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ran as college", got)
}

func TestCallRequiresTenant(t *testing.T) {
	called := false
	_, err := Call(context.Background(), "", func(context.Context, string) (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrMissingTenant)
	assert.False(t, called)
}

func TestCallReturnsZeroOnError(t *testing.T) {
	got, err := Call(context.Background(), "college", func(context.Context, string) (int, error) {
		return 42, errors.New("downstream failed")
	})
	assert.Error(t, err)
	assert.Zero(t, got)
}

func TestFanOutWaitsForAllAndCollectsErrors(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	err := FanOut(context.Background(), []string{"a", "b", "c"}, 2, time.Second, func(_ context.Context, tenantID string) error {
		mu.Lock()
		seen = append(seen, tenantID)
		mu.Unlock()
		if tenantID == "b" {
			return errors.New("unavailable")
		}
		return nil
	})

	sort.Strings(seen)
	assert.Equal(t, []string{"a", "b", "c"}, seen)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant b: unavailable")
}

func TestFanOutFailureDoesNotCancelSiblings(t *testing.T) {
	failed := make(chan struct{})
	var siblingErr error
	err := FanOut(context.Background(), []string{"broken", "slow"}, 2, time.Second, func(ctx context.Context, tenantID string) error {
		if tenantID == "broken" {
			close(failed)
			return errors.New("down")
		}
		<-failed
		time.Sleep(10 * time.Millisecond)
		siblingErr = ctx.Err()
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant broken: down")
	assert.NotContains(t, err.Error(), "slow")
	assert.NoError(t, siblingErr, "a failing tenant leaves the others running")
}

func TestFanOutRespectsLimit(t *testing.T) {
	var inFlight, maxInFlight int32
	err := FanOut(context.Background(), []string{"a", "b", "c", "d", "e"}, 2, time.Second, func(context.Context, string) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(2))
}

func TestFanOutBoundedWait(t *testing.T) {
	start := time.Now()
	err := FanOut(context.Background(), []string{"slow"}, 1, 20*time.Millisecond, func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFanOutEmpty(t *testing.T) {
	assert.NoError(t, FanOut(context.Background(), nil, 1, time.Second, func(context.Context, string) error {
		t.Fatal("should not run")
		return nil
	}))
}
