package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/helmcloud/k8s-clusterview/internal/metrics"
	"github.com/helmcloud/k8s-clusterview/internal/snapshot"
)

// DefaultTTL is the freshness window used when none is configured.
const DefaultTTL = 30 * time.Second

// Fetcher produces a new snapshot of a cluster. An empty cluster lets the
// fetcher pick one.
type Fetcher interface {
	Fetch(ctx context.Context, cluster string) (*snapshot.ClusterSnapshot, error)
}

// Recorder receives every snapshot the cache accepts.
type Recorder interface {
	SaveSnapshot(ctx context.Context, snap *snapshot.ClusterSnapshot) error
}

type Option func(*Cache)

// WithRecorder archives each successful refresh. Recorder failures are
// logged and do not fail the refresh.
func WithRecorder(r Recorder) Option {
	return func(c *Cache) {
		c.recorder = r
	}
}

// Cache serves the most recent snapshot of one cluster and refetches it once
// it is older than the freshness window.
type Cache struct {
	fetcher  Fetcher
	recorder Recorder
	ttl      time.Duration
	log      *zap.SugaredLogger
	now      func() time.Time
	group    singleflight.Group

	mu        sync.RWMutex
	cluster   string
	current   *snapshot.ClusterSnapshot
	lastFetch time.Time
}

// New returns an empty cache. cluster is the identity passed to the fetcher
// on refresh; empty means the fetcher's default.
func New(fetcher Fetcher, ttl time.Duration, cluster string, log *zap.SugaredLogger, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	empty := snapshot.Empty()
	c := &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		log:     log,
		now:     time.Now,
		cluster: cluster,
		current: &empty,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached snapshot scoped to namespace, refreshing it first
// when forceRefresh is set or the snapshot is stale. If the refresh fails the
// previous snapshot is returned together with the error; it is empty when the
// cache was never populated (see ClusterSnapshot.IsZero).
func (c *Cache) Get(ctx context.Context, namespace string, forceRefresh bool) (snapshot.ClusterSnapshot, error) {
	c.mu.RLock()
	current, lastFetch, cluster := c.current, c.lastFetch, c.cluster
	c.mu.RUnlock()

	if !forceRefresh && c.fresh(lastFetch) {
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		return snapshot.FilterNamespace(*current, namespace), nil
	}

	if forceRefresh {
		metrics.CacheRequests.WithLabelValues("forced").Inc()
	} else {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
	}

	snap, err := c.Refresh(ctx, cluster)
	if err != nil {
		return snapshot.FilterNamespace(*current, namespace), err
	}
	return snapshot.FilterNamespace(*snap, namespace), nil
}

// Refresh fetches cluster unconditionally and replaces the cached snapshot.
// An empty cluster refreshes the cluster the cache currently serves. After a
// successful refresh the cache serves snap.Cluster, unless a newer snapshot
// was stored while the fetch ran. Concurrent refreshes of the same cluster
// share one fetch.
func (c *Cache) Refresh(ctx context.Context, cluster string) (*snapshot.ClusterSnapshot, error) {
	if cluster == "" {
		c.mu.RLock()
		cluster = c.cluster
		c.mu.RUnlock()
	}

	// The shared fetch must outlive the caller that started it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(cluster, func() (interface{}, error) {
		return c.refresh(fetchCtx, cluster)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*snapshot.ClusterSnapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) refresh(ctx context.Context, cluster string) (*snapshot.ClusterSnapshot, error) {
	snap, err := c.fetcher.Fetch(ctx, cluster)
	if err != nil {
		c.log.Warnw("Snapshot refresh failed, keeping previous snapshot", "cluster", cluster, "error", err)
		return nil, err
	}

	lastFetch := snap.FetchedAt
	if lastFetch.IsZero() {
		lastFetch = c.now()
	}

	c.mu.Lock()
	if lastFetch.Before(c.lastFetch) {
		// A newer snapshot landed while this fetch was in flight.
		c.log.Debugw("Discarding out-of-order snapshot", "cluster", snap.Cluster, "fetchedAt", lastFetch, "current", c.current.Cluster)
	} else {
		c.current = snap
		c.lastFetch = lastFetch
		c.cluster = snap.Cluster
	}
	c.mu.Unlock()

	if c.recorder != nil {
		if err := c.recorder.SaveSnapshot(ctx, snap); err != nil {
			metrics.ArchiveErrors.Inc()
			c.log.Warnw("Failed to archive snapshot", "cluster", snap.Cluster, "error", err)
		}
	}
	return snap, nil
}

func (c *Cache) fresh(lastFetch time.Time) bool {
	if lastFetch.IsZero() {
		return false
	}
	return c.now().Sub(lastFetch) <= c.ttl
}

// LastFetch returns the fetch time of the cached snapshot, zero if none.
func (c *Cache) LastFetch() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastFetch
}

// Cluster returns the identity the cache refreshes by default.
func (c *Cache) Cluster() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cluster
}
