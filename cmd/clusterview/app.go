package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/helmcloud/k8s-clusterview/internal/cache"
	"github.com/helmcloud/k8s-clusterview/internal/collector"
	"github.com/helmcloud/k8s-clusterview/internal/config"
	"github.com/helmcloud/k8s-clusterview/internal/kube"
	"github.com/helmcloud/k8s-clusterview/internal/logging"
	"github.com/helmcloud/k8s-clusterview/internal/storage"
)

// app holds the components shared by all subcommands.
type app struct {
	cfg       *config.Config
	log       *zap.SugaredLogger
	lister    kube.ClusterLister
	collector *collector.Collector
	store     *storage.Storage
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	lister := kube.NewCachedLister(kube.NewKubeconfigLister(cfg.Kubeconfig), cfg.ClusterListTTL)

	return &app{
		cfg:       cfg,
		log:       log,
		lister:    lister,
		collector: collector.New(newConnector(cfg, log), lister, cfg.QueryTimeout, log),
	}, nil
}

func newConnector(cfg *config.Config, log *zap.SugaredLogger) kube.Connector {
	if cfg.QueryBackend == config.BackendKubectl {
		return kube.NewKubectlConnector(cfg.KubectlPath, cfg.Kubeconfig)
	}
	return kube.NewKubeconfigConnector(cfg.Kubeconfig, cfg.QueryTimeout, log)
}

// openArchive opens the snapshot archive when one is configured.
func (a *app) openArchive() error {
	if !a.cfg.ArchiveEnabled() {
		return nil
	}
	store, err := storage.New(a.cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.store = store
	a.log.Infow("Snapshot archive enabled", "path", a.cfg.DatabasePath, "retentionDays", a.cfg.RetentionDays)
	return nil
}

func (a *app) newCache() *cache.Cache {
	var opts []cache.Option
	if a.store != nil {
		opts = append(opts, cache.WithRecorder(a.store))
	}
	return cache.New(a.collector, a.cfg.CacheTTL, a.cfg.ClusterName, a.log, opts...)
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warnw("Failed to close storage", "error", err)
		}
	}
	_ = a.log.Sync()
}
