package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Kevocado/FPL-Optimizer/internal/models"
)

// ErrDataUnavailable is returned when no snapshot has ever been loaded and
// loading one fails.
var ErrDataUnavailable = errors.New("player data unavailable")

const (
	refreshKey        = "pool"
	defaultLoadBudget = 60 * time.Second
	snapshotRetention = 24 * time.Hour
	refreshBackoff    = 30 * time.Second
)

// PoolSnapshot is one immutable view of the player pool. Callers must not
// modify it.
type PoolSnapshot struct {
	Players    []models.Player          `json:"players"`
	Clubs      []models.Club            `json:"clubs"`
	Gameweek   int                      `json:"gameweek"`
	Difficulty models.FixtureDifficulty `json:"difficulty"`
	FetchedAt  time.Time                `json:"fetched_at"`
}

// PoolLoader builds a fresh snapshot from upstream.
type PoolLoader interface {
	Load(ctx context.Context) (*PoolSnapshot, error)
}

// PoolStatus describes the cache for readiness reporting.
type PoolStatus struct {
	Ready       bool      `json:"ready"`
	Stale       bool      `json:"stale"`
	Gameweek    int       `json:"gameweek,omitempty"`
	Players     int       `json:"players"`
	FetchedAt   time.Time `json:"fetched_at,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	LastAttempt time.Time `json:"last_attempt,omitempty"`
}

// PoolCache holds the current snapshot. Reads never wait on a refresh
// unless the cache is cold; at most one refresh runs at a time.
type PoolCache struct {
	loader     PoolLoader
	store      Cache
	ttl        time.Duration
	loadBudget time.Duration
	logger     *logrus.Logger
	now        func() time.Time

	group singleflight.Group

	mu          sync.RWMutex
	snapshot    *PoolSnapshot
	lastErr     error
	lastAttempt time.Time
}

// NewPoolCache creates a cache over loader. store may be nil.
func NewPoolCache(loader PoolLoader, store Cache, ttl time.Duration, logger *logrus.Logger) *PoolCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PoolCache{
		loader:     loader,
		store:      store,
		ttl:        ttl,
		loadBudget: defaultLoadBudget,
		logger:     logger,
		now:        time.Now,
	}
}

// Snapshot returns the current snapshot, loading it if the cache is cold.
// A stale snapshot is returned as is and refreshed in the background.
func (c *PoolCache) Snapshot(ctx context.Context) (*PoolSnapshot, error) {
	if snap := c.current(); snap != nil {
		if c.isStale(snap) {
			c.refreshAsync()
		}
		return snap, nil
	}

	if snap := c.restore(ctx); snap != nil {
		if c.isStale(snap) {
			c.refreshAsync()
		}
		return snap, nil
	}

	ch := c.group.DoChan(refreshKey, c.load)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, res.Err)
		}
		return res.Val.(*PoolSnapshot), nil
	}
}

// Refresh loads a new snapshot now, joining one already in flight. On
// failure the previous snapshot is kept.
func (c *PoolCache) Refresh(ctx context.Context) error {
	ch := c.group.DoChan(refreshKey, c.load)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// Stale reports whether snap is older than the ttl.
func (c *PoolCache) Stale(snap *PoolSnapshot) bool {
	return c.isStale(snap)
}

// Status reports readiness and freshness.
func (c *PoolCache) Status() PoolStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := PoolStatus{LastAttempt: c.lastAttempt}
	if c.lastErr != nil {
		status.LastError = c.lastErr.Error()
	}
	if c.snapshot != nil {
		status.Ready = true
		status.Stale = c.isStale(c.snapshot)
		status.Gameweek = c.snapshot.Gameweek
		status.Players = len(c.snapshot.Players)
		status.FetchedAt = c.snapshot.FetchedAt
	}
	return status
}

func (c *PoolCache) current() *PoolSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

func (c *PoolCache) isStale(snap *PoolSnapshot) bool {
	return c.now().Sub(snap.FetchedAt) > c.ttl
}

// refreshAsync starts a background load unless one was attempted within
// refreshBackoff, which bounds retries while upstream is failing.
func (c *PoolCache) refreshAsync() {
	c.mu.RLock()
	recent := !c.lastAttempt.IsZero() && c.now().Sub(c.lastAttempt) < refreshBackoff
	c.mu.RUnlock()
	if recent {
		return
	}
	go func() {
		_, _, _ = c.group.Do(refreshKey, c.load)
	}()
}

// restore adopts a snapshot persisted by an earlier process, if any.
func (c *PoolCache) restore(ctx context.Context) *PoolSnapshot {
	if c.store == nil {
		return nil
	}
	var snap PoolSnapshot
	if err := c.store.Get(ctx, SnapshotCacheKey(), &snap); err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.WithError(err).Warn("Failed to read persisted player snapshot")
		}
		return nil
	}
	if len(snap.Players) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot != nil {
		return c.snapshot
	}
	c.snapshot = &snap
	c.logger.WithFields(logrus.Fields{
		"gameweek":   snap.Gameweek,
		"players":    len(snap.Players),
		"fetched_at": snap.FetchedAt,
	}).Info("Restored player snapshot from cache")
	return c.snapshot
}

// load runs detached from any caller so that one cancelled request does not
// fail every request sharing the flight.
func (c *PoolCache) load() (interface{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.loadBudget)
	defer cancel()

	start := c.now()
	snap, err := c.loader.Load(ctx)
	if err == nil && (snap == nil || len(snap.Players) == 0) {
		err = errors.New("loader returned an empty player pool")
	}

	c.mu.Lock()
	c.lastAttempt = start
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		c.logger.WithError(err).Error("Player pool refresh failed, keeping previous snapshot")
		return nil, err
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = c.now()
	}
	c.snapshot = snap
	c.lastErr = nil
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"gameweek": snap.Gameweek,
		"players":  len(snap.Players),
		"duration": c.now().Sub(start).String(),
	}).Info("Player pool refreshed")

	if c.store != nil {
		if err := retrySet(ctx, c.store, c.logger, SnapshotCacheKey(), snap, snapshotRetention, 2); err != nil {
			c.logger.WithError(err).Warn("Failed to persist player snapshot")
		}
	}
	return snap, nil
}
