package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/helmcloud/k8s-clusterview/internal/metrics"
	"github.com/helmcloud/k8s-clusterview/internal/snapshot"
)

var start = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

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

type fakeFetcher struct {
	clock    *clock
	calls    atomic.Int32
	mu       sync.Mutex
	err      error
	clusters []string
	release  chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, cluster string) (*snapshot.ClusterSnapshot, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.clusters = append(f.clusters, cluster)
	if f.err != nil {
		return nil, f.err
	}

	if cluster == "" {
		cluster = "default-ctx"
	}
	snap := snapshot.Empty()
	snap.Cluster = cluster
	snap.FetchedAt = f.clock.Now()
	snap.Pods = []snapshot.PodView{
		{Name: "web-1", Namespace: "shop"},
		{Name: "coredns", Namespace: "kube-system"},
	}
	snap.Nodes = []snapshot.NodeView{{Name: "node-1"}}
	return &snap, nil
}

func (f *fakeFetcher) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type recorder struct {
	mu    sync.Mutex
	saved []*snapshot.ClusterSnapshot
	err   error
}

func (r *recorder) SaveSnapshot(ctx context.Context, snap *snapshot.ClusterSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, snap)
	return r.err
}

func newTestCache(t *testing.T, opts ...Option) (*Cache, *fakeFetcher, *clock) {
	clk := &clock{now: start}
	fetcher := &fakeFetcher{clock: clk}
	c := New(fetcher, 30*time.Second, "", zaptest.NewLogger(t).Sugar(), opts...)
	c.now = clk.Now
	return c, fetcher, clk
}

func TestGet_FetchesOncePerWindow(t *testing.T) {
	c, fetcher, clk := newTestCache(t)
	ctx := context.Background()

	first, err := c.Get(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, start, first.FetchedAt)

	clk.Advance(10 * time.Second)
	second, err := c.Get(ctx, "", false)
	require.NoError(t, err)

	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.Equal(t, first.FetchedAt, second.FetchedAt)
}

func TestGet_RefetchesAfterWindow(t *testing.T) {
	c, fetcher, clk := newTestCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "", false)
	require.NoError(t, err)

	clk.Advance(30 * time.Second)
	_, err = c.Get(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetcher.calls.Load(), "a snapshot exactly at the window edge is still fresh")

	clk.Advance(time.Second)
	snap, err := c.Get(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetcher.calls.Load())
	assert.Equal(t, start.Add(31*time.Second), snap.FetchedAt)
	assert.Equal(t, snap.FetchedAt, c.LastFetch())
}

func TestGet_ForceRefresh(t *testing.T) {
	c, fetcher, _ := newTestCache(t)
	ctx := context.Background()

	before := testutil.ToFloat64(metrics.CacheRequests.WithLabelValues("forced"))

	_, err := c.Get(ctx, "", false)
	require.NoError(t, err)
	_, err = c.Get(ctx, "", true)
	require.NoError(t, err)

	assert.Equal(t, int32(2), fetcher.calls.Load())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.CacheRequests.WithLabelValues("forced")))
}

func TestGet_FiltersNamespace(t *testing.T) {
	c, _, _ := newTestCache(t)

	snap, err := c.Get(context.Background(), "shop", false)
	require.NoError(t, err)

	require.Len(t, snap.Pods, 1)
	assert.Equal(t, "web-1", snap.Pods[0].Name)
	assert.Len(t, snap.Nodes, 1)

	all, err := c.Get(context.Background(), snapshot.AllNamespaces, false)
	require.NoError(t, err)
	assert.Len(t, all.Pods, 2, "filtering must not shrink the cached snapshot")
}

func TestGet_FailedRefreshKeepsStaleSnapshot(t *testing.T) {
	c, fetcher, clk := newTestCache(t)
	ctx := context.Background()

	good, err := c.Get(ctx, "", false)
	require.NoError(t, err)

	fetcher.setErr(errors.New("cluster unreachable"))
	clk.Advance(time.Minute)

	stale, err := c.Get(ctx, "", false)
	assert.EqualError(t, err, "cluster unreachable")
	assert.Equal(t, good.FetchedAt, stale.FetchedAt)
	assert.Len(t, stale.Pods, 2)

	// The failure is not remembered: the next call tries again.
	fetcher.setErr(nil)
	fresh, err := c.Get(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, start.Add(time.Minute), fresh.FetchedAt)
	assert.Equal(t, int32(3), fetcher.calls.Load())
}

func TestGet_FailureBeforeFirstFetch(t *testing.T) {
	c, fetcher, _ := newTestCache(t)
	fetcher.setErr(errors.New("no cluster available"))

	snap, err := c.Get(context.Background(), "", false)

	require.Error(t, err)
	assert.True(t, snap.IsZero())
	assert.NotNil(t, snap.Pods)
	assert.True(t, c.LastFetch().IsZero())
}

func TestRefresh_SwitchesCluster(t *testing.T) {
	c, fetcher, _ := newTestCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, "default-ctx", c.Cluster())

	snap, err := c.Refresh(ctx, "staging")
	require.NoError(t, err)
	assert.Equal(t, "staging", snap.Cluster)
	assert.Equal(t, "staging", c.Cluster())

	_, err = c.Get(ctx, "", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "staging", "staging"}, fetcher.clusters)
}

type stampedFetcher map[string]time.Time

func (f stampedFetcher) Fetch(ctx context.Context, cluster string) (*snapshot.ClusterSnapshot, error) {
	snap := snapshot.Empty()
	snap.Cluster = cluster
	snap.FetchedAt = f[cluster]
	return &snap, nil
}

func TestRefresh_KeepsNewerSnapshot(t *testing.T) {
	rec := &recorder{}
	fetcher := stampedFetcher{"staging": start, "prod": start.Add(time.Minute)}
	c := New(fetcher, 30*time.Second, "", zaptest.NewLogger(t).Sugar(), WithRecorder(rec))
	ctx := context.Background()

	// prod was fetched later but its refresh completes first.
	_, err := c.Refresh(ctx, "prod")
	require.NoError(t, err)
	stale, err := c.Refresh(ctx, "staging")
	require.NoError(t, err)

	assert.Equal(t, "staging", stale.Cluster, "the caller still gets its own snapshot")
	assert.Equal(t, "prod", c.Cluster())
	assert.Equal(t, start.Add(time.Minute), c.LastFetch())
	require.Len(t, rec.saved, 2, "both snapshots are archived")

	c.now = func() time.Time { return start.Add(time.Minute + time.Second) }
	snap, err := c.Get(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, "prod", snap.Cluster)
}

func TestRefresh_Records(t *testing.T) {
	rec := &recorder{err: errors.New("disk full")}
	c, _, _ := newTestCache(t, WithRecorder(rec))

	snap, err := c.Refresh(context.Background(), "prod")

	require.NoError(t, err, "archive failures must not fail the refresh")
	require.Len(t, rec.saved, 1)
	assert.Same(t, snap, rec.saved[0])
}

func TestRefresh_CoalescesConcurrentCalls(t *testing.T) {
	c, fetcher, _ := newTestCache(t)
	fetcher.release = make(chan struct{})

	var wg sync.WaitGroup
	results := make([]*snapshot.ClusterSnapshot, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := c.Refresh(context.Background(), "prod")
			assert.NoError(t, err)
			results[i] = snap
		}()
	}

	require.Eventually(t, func() bool { return fetcher.calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()

	assert.LessOrEqual(t, fetcher.calls.Load(), int32(5))
	for _, snap := range results {
		require.NotNil(t, snap)
		assert.Equal(t, "prod", snap.Cluster)
	}
}

func TestRefresh_CallerCancellation(t *testing.T) {
	c, fetcher, _ := newTestCache(t)
	fetcher.release = make(chan struct{})
	defer close(fetcher.release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Refresh(ctx, "prod")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGet_ConcurrentReaders(t *testing.T) {
	c, _, clk := newTestCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				clk.Advance(time.Minute)
			}
			snap, err := c.Get(ctx, "shop", i%7 == 0)
			assert.NoError(t, err)
			assert.Len(t, snap.Pods, 1)
		}(i)
	}
	wg.Wait()
}
