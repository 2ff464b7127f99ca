package kube

import (
	"context"
	"encoding/json"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// Executor runs a single query and returns the raw list JSON.
type Executor interface {
	Execute(ctx context.Context, q Query) ([]byte, error)
}

// ClientsetExecutor answers queries through the typed client-go clientset.
type ClientsetExecutor struct {
	clientset kubernetes.Interface
}

func NewClientsetExecutor(clientset kubernetes.Interface) *ClientsetExecutor {
	return &ClientsetExecutor{clientset: clientset}
}

func (e *ClientsetExecutor) Execute(ctx context.Context, q Query) ([]byte, error) {
	namespace := ""
	if !q.AllNamespaces {
		namespace = metav1.NamespaceDefault
	}
	opts := metav1.ListOptions{}

	switch q.Kind {
	case KindPods:
		list, err := e.clientset.CoreV1().Pods(namespace).List(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list pods: %w", err)
		}
		return json.Marshal(list)
	case KindNodes:
		list, err := e.clientset.CoreV1().Nodes().List(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list nodes: %w", err)
		}
		return json.Marshal(list)
	case KindDeployments:
		list, err := e.clientset.AppsV1().Deployments(namespace).List(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list deployments: %w", err)
		}
		return json.Marshal(list)
	case KindServices:
		list, err := e.clientset.CoreV1().Services(namespace).List(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list services: %w", err)
		}
		return json.Marshal(list)
	default:
		return nil, fmt.Errorf("unsupported resource kind %q", q.Kind)
	}
}
