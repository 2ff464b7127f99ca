package kube

import (
	"context"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ClusterLister returns the cluster identities visible to the caller, in
// preference order. The list may be empty.
type ClusterLister interface {
	ListClusters(ctx context.Context) ([]string, error)
}

// KubeconfigLister lists kubeconfig contexts. The current context comes
// first, the rest follow in name order. Inside a pod the only identity is
// InClusterName.
type KubeconfigLister struct {
	kubeconfig string
}

func NewKubeconfigLister(kubeconfig string) *KubeconfigLister {
	return &KubeconfigLister{kubeconfig: kubeconfig}
}

func (l *KubeconfigLister) ListClusters(ctx context.Context) ([]string, error) {
	if InCluster() {
		return []string{InClusterName}, nil
	}

	raw, err := LoadKubeconfig(l.kubeconfig)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(raw.Contexts))
	for name := range raw.Contexts {
		if name != raw.CurrentContext {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	if _, ok := raw.Contexts[raw.CurrentContext]; ok {
		names = append([]string{raw.CurrentContext}, names...)
	}
	return names, nil
}

const clusterListKey = "clusters"

// CachedLister memoizes another lister for a fixed TTL. Errors are not
// cached.
type CachedLister struct {
	next  ClusterLister
	cache *gocache.Cache
}

// NewCachedLister wraps next. A non-positive ttl disables caching.
func NewCachedLister(next ClusterLister, ttl time.Duration) *CachedLister {
	l := &CachedLister{next: next}
	if ttl > 0 {
		l.cache = gocache.New(ttl, 2*ttl)
	}
	return l
}

func (l *CachedLister) ListClusters(ctx context.Context) ([]string, error) {
	if l.cache != nil {
		if v, found := l.cache.Get(clusterListKey); found {
			return append([]string(nil), v.([]string)...), nil
		}
	}

	clusters, err := l.next.ListClusters(ctx)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		l.cache.Set(clusterListKey, append([]string(nil), clusters...), gocache.DefaultExpiration)
	}
	return clusters, nil
}

// Invalidate drops the memoized list.
func (l *CachedLister) Invalidate() {
	if l.cache != nil {
		l.cache.Delete(clusterListKey)
	}
}
