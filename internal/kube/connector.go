package kube

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// Connector points an Executor at a cluster. It must fail when the cluster
// identity is unknown or the control plane cannot be reached.
type Connector interface {
	Connect(ctx context.Context, cluster string) (Executor, error)
}

// KubeconfigConnector resolves clusters as kubeconfig contexts and queries
// them through client-go.
type KubeconfigConnector struct {
	kubeconfig   string
	timeout      time.Duration
	log          *zap.SugaredLogger
	newClientset func(*rest.Config) (kubernetes.Interface, error)
}

func NewKubeconfigConnector(kubeconfig string, timeout time.Duration, log *zap.SugaredLogger) *KubeconfigConnector {
	return &KubeconfigConnector{
		kubeconfig: kubeconfig,
		timeout:    timeout,
		log:        log,
		newClientset: func(cfg *rest.Config) (kubernetes.Interface, error) {
			return kubernetes.NewForConfig(cfg)
		},
	}
}

func (c *KubeconfigConnector) Connect(ctx context.Context, cluster string) (Executor, error) {
	cfg, err := RESTConfig(c.kubeconfig, cluster)
	if err != nil {
		return nil, err
	}
	if c.timeout > 0 {
		cfg.Timeout = c.timeout
	}

	clientset, err := c.newClientset(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	version, err := clientset.Discovery().ServerVersion()
	if err != nil {
		return nil, fmt.Errorf("failed to reach API server of %q: %w", cluster, err)
	}

	c.log.Debugw("Connected to cluster", "cluster", cluster, "host", cfg.Host, "serverVersion", version.GitVersion)
	return NewClientsetExecutor(clientset), nil
}

// KubectlConnector targets kubectl at a kubeconfig context.
type KubectlConnector struct {
	path       string
	kubeconfig string
}

func NewKubectlConnector(path, kubeconfig string) *KubectlConnector {
	return &KubectlConnector{path: path, kubeconfig: kubeconfig}
}

func (c *KubectlConnector) Connect(ctx context.Context, cluster string) (Executor, error) {
	if cluster == InClusterName {
		if !InCluster() {
			return nil, fmt.Errorf("not running inside a cluster")
		}
		return NewKubectlExecutor(c.path, "", cluster), nil
	}

	raw, err := LoadKubeconfig(c.kubeconfig)
	if err != nil {
		return nil, err
	}
	if _, ok := raw.Contexts[cluster]; !ok {
		return nil, fmt.Errorf("context %q not found in kubeconfig", cluster)
	}
	return NewKubectlExecutor(c.path, c.kubeconfig, cluster), nil
}
