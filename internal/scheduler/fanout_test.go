package scheduler

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vedran77/agora/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type idList []int64

func (l idList) ListActiveIDs(_ context.Context, afterID int64, limit int) ([]int64, error) {
	var out []int64
	for _, id := range l {
		if id > afterID {
			out = append(out, id)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type recorder struct {
	mu    sync.Mutex
	calls []int64
	fail  func(int64) bool
	block chan struct{}
}

func (r *recorder) DeliverMerged(ctx context.Context, userID int64) (bool, error) {
	r.mu.Lock()
	r.calls = append(r.calls, userID)
	r.mu.Unlock()
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if r.fail != nil && r.fail(userID) {
		return false, errors.New("boom")
	}
	return userID%2 == 0, nil
}

func (r *recorder) called() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := slices.Clone(r.calls)
	slices.Sort(out)
	return out
}

func users(n int) idList {
	ids := make(idList, n)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	return ids
}

func testConfig() config.NotificationsConfig {
	return config.NotificationsConfig{
		Interval:        time.Hour,
		Concurrency:     4,
		DeliveryTimeout: time.Second,
		PageSize:        7,
	}
}

func TestTickDeliversToEveryUserDespiteFailures(t *testing.T) {
	all := users(50)
	rec := &recorder{fail: func(id int64) bool { return id%5 == 0 }}
	f := NewFanOut(all, rec, testConfig())

	res, ok, err := f.Tick(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []int64(all), rec.called())
	assert.Equal(t, 50, res.Users)
	assert.Equal(t, 10, res.Failed)
	assert.Equal(t, 50, res.Delivered+res.Skipped+res.Failed)
}

func TestTickWithNoUsers(t *testing.T) {
	rec := &recorder{}
	f := NewFanOut(idList{}, rec, testConfig())

	res, ok, err := f.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, res.Users)
	assert.Empty(t, rec.called())
}

func TestOverlappingTickIsSkipped(t *testing.T) {
	rec := &recorder{block: make(chan struct{})}
	f := NewFanOut(users(1), rec, testConfig())

	done := make(chan TickResult)
	go func() {
		res, _, _ := f.Tick(context.Background())
		done <- res
	}()
	require.Eventually(t, func() bool { return len(rec.called()) == 1 }, time.Second, time.Millisecond)

	_, ok, err := f.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	close(rec.block)
	res := <-done
	assert.Equal(t, 1, res.Users)
	assert.Equal(t, []int64{1}, rec.called())
}

func TestRunTicksOnStartAndStops(t *testing.T) {
	rec := &recorder{}
	f := NewFanOut(users(3), rec, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- f.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.called()) == 3 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}
