package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
	"github.com/Kevocado/FPL-Optimizer/pkg/logger"
)

type fakeLoader struct {
	calls    int32
	gate     chan struct{}
	err      atomic.Value
	gameweek int32
}

func (f *fakeLoader) Load(ctx context.Context) (*PoolSnapshot, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.err.Load().(error); ok && err != nil {
		return nil, err
	}
	return &PoolSnapshot{
		Players:  []models.Player{{ID: 1, Name: "Salah"}},
		Gameweek: int(atomic.LoadInt32(&f.gameweek)),
	}, nil
}

func (f *fakeLoader) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestPoolCache(loader PoolLoader, store Cache) (*PoolCache, *clock) {
	clk := &clock{now: time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)}
	c := NewPoolCache(loader, store, time.Hour, logger.NewDiscardLogger())
	c.now = clk.Now
	return c, clk
}

func TestPoolCacheColdLoadIsSingleFlight(t *testing.T) {
	loader := &fakeLoader{gate: make(chan struct{}), gameweek: 3}
	cache, _ := newTestPoolCache(loader, nil)

	const readers = 8
	var wg sync.WaitGroup
	results := make([]*PoolSnapshot, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := cache.Snapshot(context.Background())
			assert.NoError(t, err)
			results[i] = snap
		}(i)
	}

	require.Eventually(t, func() bool { return loader.callCount() == 1 }, time.Second, 5*time.Millisecond)
	close(loader.gate)
	wg.Wait()

	assert.Equal(t, 1, loader.callCount())
	for _, snap := range results {
		require.NotNil(t, snap)
		assert.Same(t, results[0], snap)
	}
	assert.True(t, cache.Status().Ready)
}

func TestPoolCacheServesStaleAndRefreshesInBackground(t *testing.T) {
	loader := &fakeLoader{gameweek: 3}
	cache, clk := newTestPoolCache(loader, nil)

	first, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, first.Gameweek)

	atomic.StoreInt32(&loader.gameweek, 4)
	clk.Advance(2 * time.Hour)
	assert.True(t, cache.Status().Stale)

	stale, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, stale, "stale snapshot is served without waiting")

	require.Eventually(t, func() bool {
		snap, err := cache.Snapshot(context.Background())
		return err == nil && snap.Gameweek == 4
	}, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, loader.callCount(), 2)
}

func TestPoolCacheFailedRefreshKeepsSnapshot(t *testing.T) {
	loader := &fakeLoader{gameweek: 3}
	cache, _ := newTestPoolCache(loader, nil)

	_, err := cache.Snapshot(context.Background())
	require.NoError(t, err)

	loader.err.Store(errors.New("upstream down"))
	err = cache.Refresh(context.Background())
	require.Error(t, err)

	snap, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Gameweek)

	status := cache.Status()
	assert.True(t, status.Ready)
	assert.Equal(t, "upstream down", status.LastError)
}

func TestPoolCacheBacksOffStaleRefreshWhileUpstreamFails(t *testing.T) {
	loader := &fakeLoader{gameweek: 3}
	cache, clk := newTestPoolCache(loader, nil)

	_, err := cache.Snapshot(context.Background())
	require.NoError(t, err)

	loader.err.Store(errors.New("upstream down"))
	clk.Advance(2 * time.Hour)

	_, err = cache.Snapshot(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return cache.Status().LastError != ""
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 2, loader.callCount())

	for i := 0; i < 20; i++ {
		snap, err := cache.Snapshot(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, snap.Gameweek)
	}
	assert.Never(t, func() bool { return loader.callCount() > 2 }, 50*time.Millisecond, 5*time.Millisecond)

	clk.Advance(refreshBackoff + time.Second)
	_, err = cache.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return loader.callCount() == 3 }, time.Second, 5*time.Millisecond)
}

func TestPoolCacheColdFailure(t *testing.T) {
	loader := &fakeLoader{}
	loader.err.Store(errors.New("upstream down"))
	cache, _ := newTestPoolCache(loader, nil)

	_, err := cache.Snapshot(context.Background())
	require.ErrorIs(t, err, ErrDataUnavailable)
	assert.False(t, cache.Status().Ready)
}

func TestPoolCacheColdLoadHonoursCallerContext(t *testing.T) {
	loader := &fakeLoader{gate: make(chan struct{})}
	defer close(loader.gate)
	cache, _ := newTestPoolCache(loader, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := cache.Snapshot(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPoolCachePersistsAndRestores(t *testing.T) {
	store := newMemCache()
	loader := &fakeLoader{gameweek: 7}
	cache, _ := newTestPoolCache(loader, store)

	_, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.setCount())

	// a new process finds the persisted snapshot without calling upstream
	other := &fakeLoader{gate: make(chan struct{})}
	defer close(other.gate)
	restored, clk := newTestPoolCache(other, store)
	clk.Advance(-time.Hour) // persisted snapshot is still fresh

	snap, err := restored.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, snap.Gameweek)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "Salah", snap.Players[0].Name)
	assert.Equal(t, 0, other.callCount())
}
