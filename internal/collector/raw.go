package collector

import (
	"bytes"
	"encoding/json"
	"fmt"

	"k8s.io/apimachinery/pkg/util/intstr"
)

// The raw* types mirror the subset of the control-plane list payloads the
// normalizers read. Every field is optional: absent values decode to their
// zero value or a nil pointer and are defaulted by the normalizers. The
// creation timestamp stays a string so a malformed value only blanks the
// age instead of failing the whole list.

type rawMeta struct {
	Name              string            `json:"name"`
	Namespace         string            `json:"namespace"`
	CreationTimestamp string            `json:"creationTimestamp"`
	Labels            map[string]string `json:"labels"`
}

type rawPodList struct {
	Items []rawPod `json:"items"`
}

type rawPod struct {
	Metadata rawMeta `json:"metadata"`
	Status   struct {
		Phase             string `json:"phase"`
		ContainerStatuses []struct {
			Ready        bool  `json:"ready"`
			RestartCount int64 `json:"restartCount"`
		} `json:"containerStatuses"`
	} `json:"status"`
}

type rawNodeList struct {
	Items []rawNode `json:"items"`
}

type rawNode struct {
	Metadata rawMeta `json:"metadata"`
	Status   struct {
		Conditions []struct {
			Type   string `json:"type"`
			Status string `json:"status"`
		} `json:"conditions"`
		Addresses []struct {
			Type    string `json:"type"`
			Address string `json:"address"`
		} `json:"addresses"`
		Capacity map[string]string `json:"capacity"`
		NodeInfo struct {
			KubeletVersion string `json:"kubeletVersion"`
		} `json:"nodeInfo"`
	} `json:"status"`
}

type rawDeploymentList struct {
	Items []rawDeployment `json:"items"`
}

type rawDeployment struct {
	Metadata rawMeta `json:"metadata"`
	Spec     struct {
		Replicas *int32 `json:"replicas"`
	} `json:"spec"`
	Status struct {
		AvailableReplicas int32 `json:"availableReplicas"`
		ReadyReplicas     int32 `json:"readyReplicas"`
	} `json:"status"`
}

type rawServiceList struct {
	Items []rawService `json:"items"`
}

type rawService struct {
	Metadata rawMeta `json:"metadata"`
	Spec     struct {
		Type      string           `json:"type"`
		ClusterIP string           `json:"clusterIP"`
		Ports     []rawServicePort `json:"ports"`
	} `json:"spec"`
	Status struct {
		LoadBalancer struct {
			Ingress []struct {
				Hostname string `json:"hostname"`
				IP       string `json:"ip"`
			} `json:"ingress"`
		} `json:"loadBalancer"`
	} `json:"status"`
}

type rawServicePort struct {
	Port       *int32              `json:"port"`
	TargetPort *intstr.IntOrString `json:"targetPort"`
	Protocol   string              `json:"protocol"`
}

// decodeList parses a raw list payload into v. An empty payload is an empty
// collection.
func decodeList(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode list: %w", err)
	}
	return nil
}
