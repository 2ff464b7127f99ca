package storage

import "time"

// Snapshot is the archive index entry of one stored ClusterSnapshot.
type Snapshot struct {
	ID          int64     `json:"id"`
	ClusterName string    `json:"cluster"`
	Timestamp   time.Time `json:"fetchedAt"`
	Pods        int       `json:"pods"`
	Nodes       int       `json:"nodes"`
	Deployments int       `json:"deployments"`
	Services    int       `json:"services"`
}
