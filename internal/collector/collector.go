package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/helmcloud/k8s-clusterview/internal/kube"
	"github.com/helmcloud/k8s-clusterview/internal/metrics"
	"github.com/helmcloud/k8s-clusterview/internal/snapshot"
)

// Collector fetches the four snapshot resource kinds from one cluster and
// normalizes them into a ClusterSnapshot.
type Collector struct {
	connector    kube.Connector
	lister       kube.ClusterLister
	log          *zap.SugaredLogger
	queryTimeout time.Duration
	now          func() time.Time
}

func New(connector kube.Connector, lister kube.ClusterLister, queryTimeout time.Duration, log *zap.SugaredLogger) *Collector {
	return &Collector{
		connector:    connector,
		lister:       lister,
		log:          log,
		queryTimeout: queryTimeout,
		now:          time.Now,
	}
}

// Fetch collects a snapshot of cluster. An empty cluster selects the first
// cluster reported by the lister. Failures of individual resource queries
// leave that kind empty; only cluster resolution and connection failures
// fail the fetch.
func (c *Collector) Fetch(ctx context.Context, cluster string) (*snapshot.ClusterSnapshot, error) {
	start := c.now()

	snap, err := c.fetch(ctx, cluster, start)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.FetchTotal.WithLabelValues("success").Inc()

	for kind, n := range snap.Counts() {
		metrics.SnapshotRecords.WithLabelValues(kind).Set(float64(n))
	}
	return snap, nil
}

func (c *Collector) fetch(ctx context.Context, cluster string, fetchedAt time.Time) (*snapshot.ClusterSnapshot, error) {
	cluster, err := c.ResolveCluster(ctx, cluster)
	if err != nil {
		return nil, err
	}

	log := c.log.With("cluster", cluster)
	log.Debug("Starting snapshot collection")

	exec, err := c.connector.Connect(ctx, cluster)
	if err != nil {
		log.Errorw("Failed to connect to cluster", "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrClusterUnreachable, cluster, err)
	}

	outputs := c.runQueries(ctx, log, exec)
	now := c.now()

	pods := decodeOrEmpty[rawPodList](log, kube.KindPods, outputs[kube.KindPods])
	nodes := decodeOrEmpty[rawNodeList](log, kube.KindNodes, outputs[kube.KindNodes])
	deployments := decodeOrEmpty[rawDeploymentList](log, kube.KindDeployments, outputs[kube.KindDeployments])
	services := decodeOrEmpty[rawServiceList](log, kube.KindServices, outputs[kube.KindServices])

	snap := &snapshot.ClusterSnapshot{
		Cluster:     cluster,
		Pods:        normalizePods(pods, now),
		Nodes:       normalizeNodes(nodes, now),
		Deployments: normalizeDeployments(deployments, now),
		Services:    normalizeServices(services, now),
		FetchedAt:   fetchedAt,
	}

	log.Infow("Snapshot collected",
		"pods", len(snap.Pods),
		"nodes", len(snap.Nodes),
		"deployments", len(snap.Deployments),
		"services", len(snap.Services),
		"duration", c.now().Sub(fetchedAt))
	return snap, nil
}

// ResolveCluster returns cluster unchanged, or the first listed cluster when
// it is empty.
func (c *Collector) ResolveCluster(ctx context.Context, cluster string) (string, error) {
	if cluster != "" {
		return cluster, nil
	}

	clusters, err := c.lister.ListClusters(ctx)
	if err != nil {
		c.log.Warnw("Failed to list clusters", "error", err)
		return "", fmt.Errorf("%w: %w: %w", ErrNoClusterAvailable, ErrClusterListUnavailable, err)
	}
	if len(clusters) == 0 {
		return "", ErrNoClusterAvailable
	}
	return clusters[0], nil
}

// runQueries issues the snapshot queries concurrently and waits for all of
// them. A failed query has no entry in the result.
func (c *Collector) runQueries(ctx context.Context, log *zap.SugaredLogger, exec kube.Executor) map[kube.Kind][]byte {
	queries := kube.SnapshotQueries()
	outputs := make([][]byte, len(queries))

	failures := make([]*QueryError, len(queries))

	// The group has no shared context: one failed query must not cancel
	// the others.
	var g errgroup.Group
	for i, q := range queries {
		g.Go(func() error {
			qctx, cancel := c.queryContext(ctx)
			defer cancel()

			out, err := exec.Execute(qctx, q)
			if err != nil {
				failures[i] = &QueryError{Kind: q.Kind, Err: err}
				return failures[i]
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, qerr := range failures {
			if qerr != nil {
				queryFailed(log, qerr)
			}
		}
	}

	byKind := make(map[kube.Kind][]byte, len(queries))
	for i, q := range queries {
		if outputs[i] != nil {
			byKind[q.Kind] = outputs[i]
		}
	}
	return byKind
}

func (c *Collector) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.queryTimeout)
}

func decodeOrEmpty[T any](log *zap.SugaredLogger, kind kube.Kind, data []byte) T {
	var list T
	if err := decodeList(data, &list); err != nil {
		queryFailed(log, &QueryError{Kind: kind, Err: err})
		var empty T
		return empty
	}
	return list
}

func queryFailed(log *zap.SugaredLogger, err *QueryError) {
	metrics.QueryFailures.WithLabelValues(string(err.Kind)).Inc()
	log.Warnw("Resource query failed, serving empty collection", "kind", err.Kind, "error", err.Err)
}
