package collector

import (
	"fmt"
	"time"

	"github.com/helmcloud/k8s-clusterview/internal/snapshot"
)

func normalizePods(list rawPodList, now time.Time) []snapshot.PodView {
	pods := make([]snapshot.PodView, 0, len(list.Items))
	for _, pod := range list.Items {
		pods = append(pods, snapshot.PodView{
			Name:        pod.Metadata.Name,
			Namespace:   pod.Metadata.Namespace,
			Status:      pod.Status.Phase,
			Ready:       podReady(pod),
			Restarts:    podRestarts(pod),
			Age:         formatAge(pod.Metadata.CreationTimestamp, now),
			CPUUsage:    snapshot.Placeholder,
			MemoryUsage: snapshot.Placeholder,
		})
	}
	return pods
}

func podReady(pod rawPod) string {
	statuses := pod.Status.ContainerStatuses
	if len(statuses) == 0 {
		return "0/0"
	}

	ready := 0
	for _, cs := range statuses {
		if cs.Ready {
			ready++
		}
	}
	return fmt.Sprintf("%d/%d", ready, len(statuses))
}

func podRestarts(pod rawPod) int64 {
	var restarts int64
	for _, cs := range pod.Status.ContainerStatuses {
		restarts += cs.RestartCount
	}
	return restarts
}
