package collector

import (
	"sort"
	"strings"
	"time"

	"github.com/helmcloud/k8s-clusterview/internal/snapshot"
)

const (
	nodeRolePrefix    = "node-role.kubernetes.io/"
	instanceTypeLabel = "node.kubernetes.io/instance-type"
	defaultNodeRole   = "worker"
)

func normalizeNodes(list rawNodeList, now time.Time) []snapshot.NodeView {
	nodes := make([]snapshot.NodeView, 0, len(list.Items))
	for _, node := range list.Items {
		nodes = append(nodes, snapshot.NodeView{
			Name:           node.Metadata.Name,
			Status:         nodeStatus(node),
			Roles:          nodeRoles(node),
			Age:            formatAge(node.Metadata.CreationTimestamp, now),
			Version:        node.Status.NodeInfo.KubeletVersion,
			InternalIP:     nodeInternalIP(node),
			InstanceType:   node.Metadata.Labels[instanceTypeLabel],
			CPUCapacity:    node.Status.Capacity["cpu"],
			MemoryCapacity: node.Status.Capacity["memory"],
			CPUPercent:     snapshot.Placeholder,
			MemoryPercent:  snapshot.Placeholder,
		})
	}
	return nodes
}

// nodeStatus is "Ready" unless some Ready condition reports anything other
// than "True". A node without a Ready condition stays "Ready".
func nodeStatus(node rawNode) string {
	status := "Ready"
	for _, condition := range node.Status.Conditions {
		if condition.Type == "Ready" && condition.Status != "True" {
			status = "NotReady"
		}
	}
	return status
}

func nodeRoles(node rawNode) string {
	var roles []string
	for label := range node.Metadata.Labels {
		if strings.HasPrefix(label, nodeRolePrefix) {
			roles = append(roles, label)
		}
	}
	if len(roles) == 0 {
		return defaultNodeRole
	}

	// label order in the payload is not preserved by the map
	sort.Strings(roles)
	for i, label := range roles {
		_, roles[i], _ = strings.Cut(label, "/")
	}
	return strings.Join(roles, ", ")
}

func nodeInternalIP(node rawNode) string {
	for _, address := range node.Status.Addresses {
		if address.Type == "InternalIP" {
			return address.Address
		}
	}
	return ""
}
