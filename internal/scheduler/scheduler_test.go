package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/helmcloud/k8s-clusterview/internal/snapshot"
)

type fakeRefresher struct {
	mu       sync.Mutex
	clusters []string
	err      error
}

func (f *fakeRefresher) Refresh(ctx context.Context, cluster string) (*snapshot.ClusterSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clusters = append(f.clusters, cluster)
	if f.err != nil {
		return nil, f.err
	}
	snap := snapshot.Empty()
	snap.Cluster = "prod"
	snap.FetchedAt = time.Now()
	return &snap, nil
}

func (f *fakeRefresher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clusters)
}

type fakeCleaner struct {
	retention int
	err       error
}

func (f *fakeCleaner) CleanupOldSnapshots(ctx context.Context, retentionDays int) (int64, error) {
	f.retention = retentionDays
	return 3, f.err
}

func TestStart_InitialAndPeriodicRefresh(t *testing.T) {
	refresher := &fakeRefresher{}
	s := New(refresher, nil, zaptest.NewLogger(t).Sugar(), SchedulerConfig{
		Cluster:         "prod",
		RefreshInterval: time.Second,
	})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Equal(t, 1, refresher.calls(), "Start refreshes once before returning")
	assert.Equal(t, 1, s.Jobs())
	assert.Eventually(t, func() bool { return refresher.calls() >= 2 }, 3*time.Second, 50*time.Millisecond)

	refresher.mu.Lock()
	defer refresher.mu.Unlock()
	assert.Equal(t, "prod", refresher.clusters[0])
}

func TestStart_RefreshDisabled(t *testing.T) {
	refresher := &fakeRefresher{}
	s := New(refresher, &fakeCleaner{}, zaptest.NewLogger(t).Sugar(), SchedulerConfig{RetentionDays: 7})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Zero(t, refresher.calls())
	assert.Equal(t, 1, s.Jobs(), "only the cleanup job is registered")
}

func TestStart_InitialRefreshFailureIsNotFatal(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("cluster unreachable")}
	s := New(refresher, nil, zaptest.NewLogger(t).Sugar(), SchedulerConfig{RefreshInterval: time.Hour})

	require.NoError(t, s.Start(context.Background()))
	s.Stop()

	assert.Equal(t, 1, refresher.calls())
}

func TestStart_InvalidCleanupSchedule(t *testing.T) {
	s := New(&fakeRefresher{}, &fakeCleaner{}, zaptest.NewLogger(t).Sugar(), SchedulerConfig{CleanupSchedule: "every night"})

	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "failed to schedule cleanup job")
}

func TestRunCleanup(t *testing.T) {
	cleaner := &fakeCleaner{}
	s := New(&fakeRefresher{}, cleaner, zaptest.NewLogger(t).Sugar(), SchedulerConfig{RetentionDays: 14})

	require.NoError(t, s.runCleanup(context.Background()))
	assert.Equal(t, 14, cleaner.retention)

	cleaner.err = errors.New("database is locked")
	assert.ErrorContains(t, s.runCleanup(context.Background()), "cleanup failed")
}

func TestRunRefresh_WrapsError(t *testing.T) {
	cause := errors.New("no cluster available")
	s := New(&fakeRefresher{err: cause}, nil, zaptest.NewLogger(t).Sugar(), SchedulerConfig{})

	err := s.runRefresh(context.Background())
	assert.ErrorIs(t, err, cause)
}
