package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/helmcloud/k8s-clusterview/internal/snapshot"
)

// DefaultListLimit bounds ListSnapshots when no limit is given.
const DefaultListLimit = 50

var ErrSnapshotNotFound = errors.New("snapshot not found")

type Storage struct {
	db  *sql.DB
	now func() time.Time
}

func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", withForeignKeys(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer; serializing connections avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{db: db, now: time.Now}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func withForeignKeys(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_foreign_keys=on"
}

func (s *Storage) migrate() error {
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveSnapshot writes snap and all of its records in one transaction.
func (s *Storage) SaveSnapshot(ctx context.Context, snap *snapshot.ClusterSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"INSERT INTO snapshots (cluster_name, timestamp) VALUES (?, ?)",
		snap.Cluster, snap.FetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read snapshot id: %w", err)
	}

	for _, pod := range snap.Pods {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pod_snapshots (
				snapshot_id, name, namespace, status, ready, restarts, age
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, pod.Name, pod.Namespace, pod.Status, pod.Ready, pod.Restarts, pod.Age,
		); err != nil {
			return fmt.Errorf("failed to save pod snapshot: %w", err)
		}
	}

	for _, node := range snap.Nodes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO node_snapshots (
				snapshot_id, name, status, roles, age, version, internal_ip,
				instance_type, cpu_capacity, memory_capacity
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, node.Name, node.Status, node.Roles, node.Age, node.Version, node.InternalIP,
			node.InstanceType, node.CPUCapacity, node.MemoryCapacity,
		); err != nil {
			return fmt.Errorf("failed to save node snapshot: %w", err)
		}
	}

	for _, dep := range snap.Deployments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO deployment_snapshots (
				snapshot_id, name, namespace, desired_replicas, available_replicas, ready_replicas, age
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, dep.Name, dep.Namespace, dep.DesiredReplicas, dep.AvailableReplicas, dep.ReadyReplicas, dep.Age,
		); err != nil {
			return fmt.Errorf("failed to save deployment snapshot: %w", err)
		}
	}

	for _, svc := range snap.Services {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO service_snapshots (
				snapshot_id, name, namespace, type, cluster_ip, external_ip, ports, age
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, svc.Name, svc.Namespace, svc.Type, svc.ClusterIP, svc.ExternalIP, svc.Ports, svc.Age,
		); err != nil {
			return fmt.Errorf("failed to save service snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns the newest archived snapshots first. An empty
// cluster lists every cluster.
func (s *Storage) ListSnapshots(ctx context.Context, cluster string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.cluster_name, s.timestamp,
			(SELECT COUNT(*) FROM pod_snapshots WHERE snapshot_id = s.id),
			(SELECT COUNT(*) FROM node_snapshots WHERE snapshot_id = s.id),
			(SELECT COUNT(*) FROM deployment_snapshots WHERE snapshot_id = s.id),
			(SELECT COUNT(*) FROM service_snapshots WHERE snapshot_id = s.id)
		FROM snapshots s
		WHERE ? = '' OR s.cluster_name = ?
		ORDER BY s.timestamp DESC, s.id DESC
		LIMIT ?`,
		cluster, cluster, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []Snapshot{}
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(
			&snap.ID, &snap.ClusterName, &snap.Timestamp,
			&snap.Pods, &snap.Nodes, &snap.Deployments, &snap.Services,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}

// GetSnapshot loads an archived snapshot with all of its records in their
// original order.
func (s *Storage) GetSnapshot(ctx context.Context, id int64) (*snapshot.ClusterSnapshot, error) {
	snap := snapshot.Empty()

	err := s.db.QueryRowContext(ctx,
		"SELECT cluster_name, timestamp FROM snapshots WHERE id = ?", id,
	).Scan(&snap.Cluster, &snap.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	if snap.Pods, err = s.getPods(ctx, id); err != nil {
		return nil, err
	}
	if snap.Nodes, err = s.getNodes(ctx, id); err != nil {
		return nil, err
	}
	if snap.Deployments, err = s.getDeployments(ctx, id); err != nil {
		return nil, err
	}
	if snap.Services, err = s.getServices(ctx, id); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Storage) getPods(ctx context.Context, snapshotID int64) ([]snapshot.PodView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, namespace, status, ready, restarts, age
		FROM pod_snapshots
		WHERE snapshot_id = ?
		ORDER BY id`,
		snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pod snapshots: %w", err)
	}
	defer rows.Close()

	pods := []snapshot.PodView{}
	for rows.Next() {
		pod := snapshot.PodView{CPUUsage: snapshot.Placeholder, MemoryUsage: snapshot.Placeholder}
		if err := rows.Scan(&pod.Name, &pod.Namespace, &pod.Status, &pod.Ready, &pod.Restarts, &pod.Age); err != nil {
			return nil, fmt.Errorf("failed to scan pod snapshot: %w", err)
		}
		pods = append(pods, pod)
	}

	return pods, rows.Err()
}

func (s *Storage) getNodes(ctx context.Context, snapshotID int64) ([]snapshot.NodeView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, status, roles, age, version, internal_ip, instance_type, cpu_capacity, memory_capacity
		FROM node_snapshots
		WHERE snapshot_id = ?
		ORDER BY id`,
		snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query node snapshots: %w", err)
	}
	defer rows.Close()

	nodes := []snapshot.NodeView{}
	for rows.Next() {
		node := snapshot.NodeView{CPUPercent: snapshot.Placeholder, MemoryPercent: snapshot.Placeholder}
		if err := rows.Scan(
			&node.Name, &node.Status, &node.Roles, &node.Age, &node.Version,
			&node.InternalIP, &node.InstanceType, &node.CPUCapacity, &node.MemoryCapacity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan node snapshot: %w", err)
		}
		nodes = append(nodes, node)
	}

	return nodes, rows.Err()
}

func (s *Storage) getDeployments(ctx context.Context, snapshotID int64) ([]snapshot.DeploymentView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, namespace, desired_replicas, available_replicas, ready_replicas, age
		FROM deployment_snapshots
		WHERE snapshot_id = ?
		ORDER BY id`,
		snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query deployment snapshots: %w", err)
	}
	defer rows.Close()

	deployments := []snapshot.DeploymentView{}
	for rows.Next() {
		var dep snapshot.DeploymentView
		if err := rows.Scan(
			&dep.Name, &dep.Namespace, &dep.DesiredReplicas,
			&dep.AvailableReplicas, &dep.ReadyReplicas, &dep.Age,
		); err != nil {
			return nil, fmt.Errorf("failed to scan deployment snapshot: %w", err)
		}
		deployments = append(deployments, dep)
	}

	return deployments, rows.Err()
}

func (s *Storage) getServices(ctx context.Context, snapshotID int64) ([]snapshot.ServiceView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, namespace, type, cluster_ip, external_ip, ports, age
		FROM service_snapshots
		WHERE snapshot_id = ?
		ORDER BY id`,
		snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query service snapshots: %w", err)
	}
	defer rows.Close()

	services := []snapshot.ServiceView{}
	for rows.Next() {
		var svc snapshot.ServiceView
		if err := rows.Scan(
			&svc.Name, &svc.Namespace, &svc.Type, &svc.ClusterIP,
			&svc.ExternalIP, &svc.Ports, &svc.Age,
		); err != nil {
			return nil, fmt.Errorf("failed to scan service snapshot: %w", err)
		}
		services = append(services, svc)
	}

	return services, rows.Err()
}

// CleanupOldSnapshots deletes snapshots older than retentionDays together
// with their records and returns how many snapshots were removed.
func (s *Storage) CleanupOldSnapshots(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)
	result, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old snapshots: %w", err)
	}
	return result.RowsAffected()
}
