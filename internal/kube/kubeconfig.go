package kube

import (
	"fmt"
	"path/filepath"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
	"k8s.io/client-go/util/homedir"
)

// InClusterName identifies the cluster reached through the pod's service
// account.
const InClusterName = "in-cluster"

// inClusterConfig is swapped out in tests.
var inClusterConfig = rest.InClusterConfig

// DefaultKubeconfigPath returns ~/.kube/config, or "" when there is no home
// directory.
func DefaultKubeconfigPath() string {
	if home := homedir.HomeDir(); home != "" {
		return filepath.Join(home, ".kube", "config")
	}
	return ""
}

// InCluster reports whether the process runs inside a pod with a service
// account mounted.
func InCluster() bool {
	_, err := inClusterConfig()
	return err == nil
}

func loadingRules(kubeconfig string) *clientcmd.ClientConfigLoadingRules {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	return rules
}

// LoadKubeconfig reads and merges the kubeconfig at path.
func LoadKubeconfig(kubeconfig string) (*clientcmdapi.Config, error) {
	cfg, err := loadingRules(kubeconfig).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	return cfg, nil
}

// RESTConfig builds a client config for the named kubeconfig context, or for
// the service account when cluster is InClusterName.
func RESTConfig(kubeconfig, cluster string) (*rest.Config, error) {
	if cluster == InClusterName {
		cfg, err := inClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get in-cluster config: %w", err)
		}
		return cfg, nil
	}

	raw, err := LoadKubeconfig(kubeconfig)
	if err != nil {
		return nil, err
	}
	if _, ok := raw.Contexts[cluster]; !ok {
		return nil, fmt.Errorf("context %q not found in kubeconfig", cluster)
	}

	cfg, err := clientcmd.NewNonInteractiveClientConfig(*raw, cluster, &clientcmd.ConfigOverrides{}, nil).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build config for context %q: %w", cluster, err)
	}
	return cfg, nil
}
