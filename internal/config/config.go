package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/helmcloud/k8s-clusterview/internal/kube"
)

const (
	BackendClientset = "clientset"
	BackendKubectl   = "kubectl"
)

type Config struct {
	// HTTP
	ListenAddr         string
	GinMode            string
	CORSAllowedOrigins []string

	// Cluster access
	Kubeconfig   string
	ClusterName  string
	QueryBackend string
	KubectlPath  string
	QueryTimeout time.Duration

	// Caching and refresh
	CacheTTL        time.Duration
	ClusterListTTL  time.Duration
	RefreshInterval time.Duration

	// Archive
	DatabasePath  string
	RetentionDays int

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:   getEnvOrDefault("LISTEN_ADDR", ":8080"),
		GinMode:      strings.ToLower(getEnvOrDefault("GIN_MODE", "release")),
		Kubeconfig:   getEnvOrDefault("KUBECONFIG", kube.DefaultKubeconfigPath()),
		ClusterName:  os.Getenv("CLUSTER_NAME"),
		QueryBackend: strings.ToLower(getEnvOrDefault("QUERY_BACKEND", BackendClientset)),
		KubectlPath:  getEnvOrDefault("KUBECTL_PATH", "kubectl"),
		DatabasePath: os.Getenv("DATABASE_PATH"),
		LogLevel:     strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:    strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json")),
	}

	cfg.CORSAllowedOrigins = parseCommaSeparated(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	var err error
	if cfg.QueryTimeout, err = parseDuration("QUERY_TIMEOUT", "20s"); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = parseDuration("CACHE_TTL", "30s"); err != nil {
		return nil, err
	}
	if cfg.ClusterListTTL, err = parseDuration("CLUSTER_LIST_TTL", "1m"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = parseDuration("REFRESH_INTERVAL", "0"); err != nil {
		return nil, err
	}

	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("CACHE_TTL must be positive")
	}
	if cfg.QueryTimeout < 0 {
		return nil, fmt.Errorf("QUERY_TIMEOUT must not be negative")
	}
	if cfg.RefreshInterval < 0 {
		return nil, fmt.Errorf("REFRESH_INTERVAL must not be negative")
	}

	// Parse retention days
	retentionStr := getEnvOrDefault("RETENTION_DAYS", "7")
	retention, err := strconv.Atoi(retentionStr)
	if err != nil {
		return nil, fmt.Errorf("invalid RETENTION_DAYS: %w", err)
	}
	if retention < 1 {
		return nil, fmt.Errorf("RETENTION_DAYS must be at least 1")
	}
	cfg.RetentionDays = retention

	switch cfg.QueryBackend {
	case BackendClientset, BackendKubectl:
	default:
		return nil, fmt.Errorf("invalid QUERY_BACKEND: %s (expected %s or %s)", cfg.QueryBackend, BackendClientset, BackendKubectl)
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[cfg.GinMode] {
		return nil, fmt.Errorf("invalid GIN_MODE: %s", cfg.GinMode)
	}

	return cfg, nil
}

// ArchiveEnabled reports whether snapshots are written to sqlite.
func (c *Config) ArchiveEnabled() bool {
	return c.DatabasePath != ""
}

func parseDuration(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnvOrDefault(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCommaSeparated(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
