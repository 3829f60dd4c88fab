package storage

// migrations holds the ThreadBox schema, applied in order inside a single
// transaction the same way shoal-provision's database.Migrate runs its
// migration list.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		session TEXT NOT NULL,
		path TEXT NOT NULL,
		name TEXT NOT NULL,
		parent_path TEXT,
		type TEXT NOT NULL CHECK (type IN ('file','directory')),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		latest_version INTEGER
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_nodes_session_path ON nodes(session, path)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_session_parent ON nodes(session, parent_path)`,
	`CREATE TABLE IF NOT EXISTS file_versions (
		id TEXT PRIMARY KEY,
		node_id TEXT NOT NULL REFERENCES nodes(id),
		version INTEGER NOT NULL,
		content BLOB NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_file_versions_node_version ON file_versions(node_id, version)`,
}
