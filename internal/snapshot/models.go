package snapshot

import "time"

// Placeholder is reported for usage fields that are not computed.
const Placeholder = "N/A"

// ClusterSnapshot bundles the view records gathered by a single fetch.
type ClusterSnapshot struct {
	Cluster     string           `json:"cluster"`
	Pods        []PodView        `json:"pods"`
	Nodes       []NodeView       `json:"nodes"`
	Deployments []DeploymentView `json:"deployments"`
	Services    []ServiceView    `json:"services"`
	FetchedAt   time.Time        `json:"fetchedAt"`
}

type PodView struct {
	Name        string `json:"name"`
	Namespace   string `json:"namespace"`
	Status      string `json:"status"`
	Ready       string `json:"ready"`
	Restarts    int64  `json:"restarts"`
	Age         string `json:"age"`
	CPUUsage    string `json:"cpuUsage"`
	MemoryUsage string `json:"memoryUsage"`
}

type NodeView struct {
	Name           string `json:"name"`
	Status         string `json:"status"`
	Roles          string `json:"roles"`
	Age            string `json:"age"`
	Version        string `json:"version"`
	InternalIP     string `json:"internalIp"`
	InstanceType   string `json:"instanceType"`
	CPUCapacity    string `json:"cpuCapacity"`
	MemoryCapacity string `json:"memoryCapacity"`
	CPUPercent     string `json:"cpuPercent"`
	MemoryPercent  string `json:"memoryPercent"`
}

type DeploymentView struct {
	Name              string `json:"name"`
	Namespace         string `json:"namespace"`
	DesiredReplicas   int32  `json:"desiredReplicas"`
	AvailableReplicas int32  `json:"availableReplicas"`
	ReadyReplicas     int32  `json:"readyReplicas"`
	Age               string `json:"age"`
}

type ServiceView struct {
	Name       string `json:"name"`
	Namespace  string `json:"namespace"`
	Type       string `json:"type"`
	ClusterIP  string `json:"clusterIp"`
	ExternalIP string `json:"externalIp"`
	Ports      string `json:"ports"`
	Age        string `json:"age"`
}

// Empty returns a snapshot with no records. Collections are non-nil so they
// encode as JSON arrays.
func Empty() ClusterSnapshot {
	return ClusterSnapshot{
		Pods:        []PodView{},
		Nodes:       []NodeView{},
		Deployments: []DeploymentView{},
		Services:    []ServiceView{},
	}
}

// IsZero reports whether the snapshot was never filled by a fetch.
func (s ClusterSnapshot) IsZero() bool {
	return s.FetchedAt.IsZero()
}

// Counts returns the number of records per resource kind.
func (s ClusterSnapshot) Counts() map[string]int {
	return map[string]int{
		"pods":        len(s.Pods),
		"nodes":       len(s.Nodes),
		"deployments": len(s.Deployments),
		"services":    len(s.Services),
	}
}
