package collector

import (
	"strconv"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/helmcloud/k8s-clusterview/internal/snapshot"
)

const defaultProtocol = "TCP"

func normalizeServices(list rawServiceList, now time.Time) []snapshot.ServiceView {
	services := make([]snapshot.ServiceView, 0, len(list.Items))
	for _, svc := range list.Items {
		services = append(services, snapshot.ServiceView{
			Name:       svc.Metadata.Name,
			Namespace:  svc.Metadata.Namespace,
			Type:       svc.Spec.Type,
			ClusterIP:  svc.Spec.ClusterIP,
			ExternalIP: serviceExternalIP(svc),
			Ports:      formatPorts(svc.Spec.Ports),
			Age:        formatAge(svc.Metadata.CreationTimestamp, now),
		})
	}
	return services
}

// serviceExternalIP only looks at load balancers: the first ingress entry's
// hostname, then its IP.
func serviceExternalIP(svc rawService) string {
	if svc.Spec.Type != "LoadBalancer" {
		return snapshot.Placeholder
	}
	ingress := svc.Status.LoadBalancer.Ingress
	if len(ingress) == 0 {
		return snapshot.Placeholder
	}
	if ingress[0].Hostname != "" {
		return ingress[0].Hostname
	}
	return ingress[0].IP
}

// targetPortSet reports whether the service names a target port. Typed
// service lists serialize an unset int target port as 0.
func targetPortSet(target *intstr.IntOrString) bool {
	if target == nil {
		return false
	}
	if target.Type == intstr.String {
		return target.StrVal != ""
	}
	return target.IntVal != 0
}

// formatPorts renders ports as "port[:targetPort]/protocol", comma separated.
func formatPorts(ports []rawServicePort) string {
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		var b strings.Builder
		if p.Port != nil {
			b.WriteString(strconv.Itoa(int(*p.Port)))
		}
		if targetPortSet(p.TargetPort) {
			b.WriteString(":")
			b.WriteString(p.TargetPort.String())
		}
		protocol := p.Protocol
		if protocol == "" {
			protocol = defaultProtocol
		}
		b.WriteString("/")
		b.WriteString(protocol)
		parts = append(parts, b.String())
	}
	return strings.Join(parts, ", ")
}
