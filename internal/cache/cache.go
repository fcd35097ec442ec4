package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gasfeel/gaspay/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrNoData is returned when a refresh fails and no previous good
// snapshot exists to fall back on. The presentation layer renders this
// as the "offline/waiting" state.
var ErrNoData = errors.New("no feed data available yet")

// FetchFunc retrieves a fresh EventSet from the upstream feed.
type FetchFunc func(ctx context.Context) (*models.EventSet, error)

// SnapshotStore persists the last good snapshot across restarts. It is
// optional; a nil store disables warm starts.
type SnapshotStore interface {
	Save(ctx context.Context, set *models.EventSet) error
	Load(ctx context.Context) (*models.EventSet, error)
}

// Cache bounds refresh frequency on the upstream feed with a TTL and
// serves the last good snapshot when a refresh fails. The clock and the
// fetch function are injected so tests can drive both.
//
// The snapshot is replaced wholesale on every successful refresh and
// handed out by pointer; it is never mutated in place, so callers may
// read it without holding any lock.
type Cache struct {
	fetch FetchFunc
	ttl   time.Duration
	now   func() time.Time

	store  SnapshotStore
	logger *zap.Logger

	group singleflight.Group

	mu           sync.RWMutex
	snapshot     *models.EventSet
	lastFetch    time.Time
	lastSuccess  time.Time
	servingStale bool
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithSnapshotStore enables snapshot persistence for warm starts.
func WithSnapshotStore(store SnapshotStore) Option {
	return func(c *Cache) { c.store = store }
}

// New constructs a Cache around the given fetch function.
func New(fetch FetchFunc, ttl time.Duration, logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		fetch:  fetch,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WarmStart loads the persisted snapshot, if any, so the service can
// answer queries before the first successful fetch. The loaded snapshot
// is marked stale and the TTL is left expired, so the next query still
// triggers a real refresh.
func (c *Cache) WarmStart(ctx context.Context) {
	if c.store == nil {
		return
	}
	set, err := c.store.Load(ctx)
	if err != nil || set == nil {
		if err != nil {
			c.logger.Warn("snapshot warm start failed", zap.Error(err))
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot != nil {
		return
	}
	c.snapshot = set
	c.servingStale = true
	c.logger.Info("restored feed snapshot",
		zap.Int("events", len(set.Events)),
		zap.Time("fetched_at", set.FetchedAt),
	)
}

// Get returns the current EventSet, refreshing it from upstream when the
// TTL has elapsed. Concurrent callers during a cold or expired cache
// share a single in-flight fetch. On refresh failure the previous good
// snapshot is served unchanged; the call fails only when no snapshot has
// ever been obtained.
func (c *Cache) Get(ctx context.Context) (*models.EventSet, error) {
	c.mu.RLock()
	if c.snapshot != nil && c.now().Sub(c.lastFetch) < c.ttl {
		set := c.snapshot
		c.mu.RUnlock()
		return set, nil
	}
	c.mu.RUnlock()

	// singleflight collapses the check-then-fetch race: callers that
	// arrive while a refresh is in flight block and share its outcome.
	v, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.EventSet), nil
}

func (c *Cache) refresh(ctx context.Context) (*models.EventSet, error) {
	// Re-check under the lock: a caller that queued behind an in-flight
	// refresh must not immediately trigger another one.
	c.mu.RLock()
	if c.snapshot != nil && c.now().Sub(c.lastFetch) < c.ttl {
		set := c.snapshot
		c.mu.RUnlock()
		return set, nil
	}
	c.mu.RUnlock()

	set, err := c.fetch(ctx)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		// lastFetch advances on failure too, so a burst of queries
		// behind a broken feed retries at most once per TTL. The
		// stale flag keeps the snapshot servable and the retry armed.
		c.lastFetch = c.now()
		if c.snapshot != nil {
			c.servingStale = true
			c.logger.Warn("feed refresh failed, serving stale snapshot",
				zap.Error(err),
				zap.Time("snapshot_fetched_at", c.snapshot.FetchedAt),
			)
			return c.snapshot, nil
		}
		c.logger.Error("feed refresh failed with no fallback", zap.Error(err))
		return nil, errors.Join(ErrNoData, err)
	}

	now := c.now()
	set.FetchedAt = now

	c.mu.Lock()
	c.snapshot = set
	c.lastFetch = now
	c.lastSuccess = now
	c.servingStale = false
	c.mu.Unlock()

	if c.store != nil {
		go c.persist(set)
	}
	return set, nil
}

func (c *Cache) persist(set *models.EventSet) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.store.Save(ctx, set); err != nil {
		c.logger.Warn("snapshot persist failed", zap.Error(err))
	}
}

// Health reports the refresh state for the /health endpoint.
func (c *Cache) Health() models.Health {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h := models.Health{ServingStale: c.servingStale}
	if !c.lastSuccess.IsZero() {
		t := c.lastSuccess
		h.LastRefresh = &t
	}
	return h
}
