package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/helmcloud/k8s-clusterview/internal/api"
	"github.com/helmcloud/k8s-clusterview/internal/pdfgen"
	"github.com/helmcloud/k8s-clusterview/internal/scheduler"
	"github.com/helmcloud/k8s-clusterview/internal/snapshot"
)

const shutdownTimeout = 10 * time.Second

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "clusterview",
		Short:        "Kubernetes cluster state dashboard backend",
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCommand(),
		newSnapshotCommand(),
		newClustersCommand(),
	)
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the cluster snapshot API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.openArchive(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			snapshots := a.newCache()

			var (
				archive api.Archive
				cleaner scheduler.Cleaner
			)
			if a.store != nil {
				archive = a.store
				cleaner = a.store
			}

			sched := scheduler.New(snapshots, cleaner, a.log, scheduler.SchedulerConfig{
				Cluster:         a.cfg.ClusterName,
				RefreshInterval: a.cfg.RefreshInterval,
				RetentionDays:   a.cfg.RetentionDays,
			})
			if err := sched.Start(ctx); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}
			defer sched.Stop()

			gin.SetMode(a.cfg.GinMode)
			handler := api.NewHandler(snapshots, a.lister, archive, a.log)
			srv := &http.Server{
				Addr:              a.cfg.ListenAddr,
				Handler:           api.SetupRouter(handler, a.log.Desugar(), a.cfg.CORSAllowedOrigins),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Infow("Listening", "addr", a.cfg.ListenAddr, "backend", a.cfg.QueryBackend, "cacheTTL", a.cfg.CacheTTL)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case <-ctx.Done():
				a.log.Info("Received shutdown signal")
			case err := <-errCh:
				return fmt.Errorf("http server failed: %w", err)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down http server: %w", err)
			}
			a.log.Info("Server stopped")
			return nil
		},
	}
}

func newSnapshotCommand() *cobra.Command {
	var cluster, namespace, pdfPath string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch one snapshot and print it as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.openArchive(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cluster == "" {
				cluster = a.cfg.ClusterName
			}
			snap, err := a.collector.Fetch(ctx, cluster)
			if err != nil {
				return err
			}

			if a.store != nil {
				if err := a.store.SaveSnapshot(ctx, snap); err != nil {
					a.log.Warnw("Failed to archive snapshot", "error", err)
				}
			}

			if pdfPath != "" {
				if err := pdfgen.GenerateReportPDF(*snap, namespace, pdfPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", pdfPath)
				return nil
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(snapshot.FilterNamespace(*snap, namespace))
		},
	}

	cmd.Flags().StringVar(&cluster, "cluster", "", "Kubeconfig context to query (default: CLUSTER_NAME or the current context)")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Restrict pods, deployments and services to this namespace")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Write a PDF report to this path instead of printing JSON")

	return cmd
}

func newClustersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clusters",
		Short: "List the clusters available to query",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			clusters, err := a.lister.ListClusters(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range clusters {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}
