package snapshot

// AllNamespaces is the selector the dashboard sends for an unscoped view.
const AllNamespaces = "All namespaces"

// IsAllNamespaces reports whether namespace selects every namespace. The
// empty selector is treated the same way.
func IsAllNamespaces(namespace string) bool {
	return namespace == "" || namespace == AllNamespaces
}

// FilterNamespace returns the part of s that belongs to namespace. Pods,
// deployments and services keep their relative order; nodes are cluster
// scoped and always pass through. s itself is never modified.
func FilterNamespace(s ClusterSnapshot, namespace string) ClusterSnapshot {
	if IsAllNamespaces(namespace) {
		return s
	}

	out := ClusterSnapshot{
		Cluster:     s.Cluster,
		Nodes:       s.Nodes,
		FetchedAt:   s.FetchedAt,
		Pods:        make([]PodView, 0, len(s.Pods)),
		Deployments: make([]DeploymentView, 0, len(s.Deployments)),
		Services:    make([]ServiceView, 0, len(s.Services)),
	}
	if out.Nodes == nil {
		out.Nodes = []NodeView{}
	}

	for _, p := range s.Pods {
		if p.Namespace == namespace {
			out.Pods = append(out.Pods, p)
		}
	}
	for _, d := range s.Deployments {
		if d.Namespace == namespace {
			out.Deployments = append(out.Deployments, d)
		}
	}
	for _, svc := range s.Services {
		if svc.Namespace == namespace {
			out.Services = append(out.Services, svc)
		}
	}

	return out
}
