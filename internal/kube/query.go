package kube

// Kind names a resource kind the way kubectl spells it.
type Kind string

const (
	KindPods        Kind = "pods"
	KindNodes       Kind = "nodes"
	KindDeployments Kind = "deployments"
	KindServices    Kind = "services"
)

// Query describes one read-only list call against the control plane.
type Query struct {
	Kind          Kind
	AllNamespaces bool
}

// SnapshotQueries returns the four queries that make up a cluster snapshot.
// Nodes are cluster scoped, so their query carries no namespace scope.
func SnapshotQueries() []Query {
	return []Query{
		{Kind: KindPods, AllNamespaces: true},
		{Kind: KindNodes},
		{Kind: KindDeployments, AllNamespaces: true},
		{Kind: KindServices, AllNamespaces: true},
	}
}
