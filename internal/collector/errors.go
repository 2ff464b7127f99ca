package collector

import (
	"errors"
	"fmt"

	"github.com/helmcloud/k8s-clusterview/internal/kube"
)

var (
	// ErrClusterUnreachable means the cluster identity could not be resolved
	// to a working control-plane connection. The whole fetch is aborted.
	ErrClusterUnreachable = errors.New("cluster unreachable")

	// ErrClusterListUnavailable means the cluster lister failed.
	ErrClusterListUnavailable = errors.New("cluster list unavailable")

	// ErrNoClusterAvailable means no cluster was requested and none could be
	// discovered. The whole fetch is aborted.
	ErrNoClusterAvailable = errors.New("no cluster available")

	// ErrQueryFailed marks a single resource query that failed or returned
	// output that could not be decoded.
	ErrQueryFailed = errors.New("query failed")
)

// QueryError is the per-kind failure absorbed by the fetcher.
type QueryError struct {
	Kind kube.Kind
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrQueryFailed, e.Kind, e.Err)
}

func (e *QueryError) Unwrap() []error {
	return []error{ErrQueryFailed, e.Err}
}
