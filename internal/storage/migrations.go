package storage

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cluster_name TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_snapshots_timestamp ON snapshots(timestamp);
CREATE INDEX IF NOT EXISTS idx_snapshots_cluster ON snapshots(cluster_name);

CREATE TABLE IF NOT EXISTS pod_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	snapshot_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	namespace TEXT NOT NULL,
	status TEXT NOT NULL,
	ready TEXT NOT NULL,
	restarts INTEGER NOT NULL DEFAULT 0,
	age TEXT NOT NULL,
	FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_pod_snapshots_snapshot ON pod_snapshots(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_pod_snapshots_namespace ON pod_snapshots(namespace);

CREATE TABLE IF NOT EXISTS node_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	snapshot_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	roles TEXT NOT NULL,
	age TEXT NOT NULL,
	version TEXT NOT NULL,
	internal_ip TEXT NOT NULL,
	instance_type TEXT NOT NULL,
	cpu_capacity TEXT NOT NULL,
	memory_capacity TEXT NOT NULL,
	FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_node_snapshots_snapshot ON node_snapshots(snapshot_id);

CREATE TABLE IF NOT EXISTS deployment_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	snapshot_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	namespace TEXT NOT NULL,
	desired_replicas INTEGER NOT NULL DEFAULT 0,
	available_replicas INTEGER NOT NULL DEFAULT 0,
	ready_replicas INTEGER NOT NULL DEFAULT 0,
	age TEXT NOT NULL,
	FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_deployment_snapshots_snapshot ON deployment_snapshots(snapshot_id);

CREATE TABLE IF NOT EXISTS service_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	snapshot_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	namespace TEXT NOT NULL,
	type TEXT NOT NULL,
	cluster_ip TEXT NOT NULL,
	external_ip TEXT NOT NULL,
	ports TEXT NOT NULL,
	age TEXT NOT NULL,
	FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_service_snapshots_snapshot ON service_snapshots(snapshot_id);
`
