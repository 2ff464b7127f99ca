package collector

import (
	"time"

	"github.com/helmcloud/k8s-clusterview/internal/snapshot"
)

func normalizeDeployments(list rawDeploymentList, now time.Time) []snapshot.DeploymentView {
	deployments := make([]snapshot.DeploymentView, 0, len(list.Items))
	for _, d := range list.Items {
		var desired int32
		if d.Spec.Replicas != nil {
			desired = *d.Spec.Replicas
		}
		deployments = append(deployments, snapshot.DeploymentView{
			Name:              d.Metadata.Name,
			Namespace:         d.Metadata.Namespace,
			DesiredReplicas:   desired,
			AvailableReplicas: d.Status.AvailableReplicas,
			ReadyReplicas:     d.Status.ReadyReplicas,
			Age:               formatAge(d.Metadata.CreationTimestamp, now),
		})
	}
	return deployments
}
