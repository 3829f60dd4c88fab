// Package storage implements the ThreadBox storage engine: the inode
// graph, version log, session isolation, and directory auto-
// materialisation described in SPEC_FULL.md §3-4. Every mutating
// operation runs inside one transaction via DB.WriteTx; reads go directly
// through the persistence adapter.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/simbo1905/threadbox-mcp/internal/idgen"
	"github.com/simbo1905/threadbox-mcp/internal/pathvfs"
)

// Engine owns a single *DB and exposes the public storage operations.
// Multiple independent engines over distinct database files must not
// share a handle.
type Engine struct {
	db *DB
}

// NewEngine wraps an already-opened DB.
func NewEngine(db *DB) *Engine {
	return &Engine{db: db}
}

// Close releases the engine's database handle. Operations issued after
// Close fail.
func (e *Engine) Close() error {
	return e.db.Close()
}

func normalizeSession(session string) string {
	return strings.TrimSpace(session)
}

func pathErr(kind Kind, msg string, err error) error {
	if pe, ok := err.(*pathvfs.Error); ok {
		switch pe.Kind {
		case pathvfs.ErrInvalidName:
			return newErr(KindInvalidName, pe.Input, pe.Msg)
		default:
			return newErr(KindInvalidPath, pe.Input, pe.Msg)
		}
	}
	return newErr(kind, "", msg)
}

// nodeRow is the raw scan target for a nodes row.
type nodeRow struct {
	id            string
	session       string
	path          string
	name          string
	parentPath    sql.NullString
	typ           NodeType
	createdAt     time.Time
	updatedAt     time.Time
	latestVersion sql.NullInt64
}

func (n nodeRow) toEntry() VirtualEntry {
	e := VirtualEntry{
		ID:        n.id,
		Session:   n.session,
		Path:      n.path,
		Name:      n.name,
		Type:      n.typ,
		CreatedAt: n.createdAt,
		UpdatedAt: n.updatedAt,
	}
	if n.parentPath.Valid {
		p := n.parentPath.String
		e.ParentPath = &p
	}
	if n.latestVersion.Valid {
		v := int(n.latestVersion.Int64)
		e.LatestVersion = &v
	}
	return e
}

const nodeColumns = `id, session, path, name, parent_path, type, created_at, updated_at, latest_version`

func scanNode(row interface{ Scan(...any) error }) (*nodeRow, error) {
	var n nodeRow
	if err := row.Scan(&n.id, &n.session, &n.path, &n.name, &n.parentPath, &n.typ, &n.createdAt, &n.updatedAt, &n.latestVersion); err != nil {
		return nil, err
	}
	return &n, nil
}

func getNodeTx(ctx context.Context, tx *sql.Tx, session, path string) (*nodeRow, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE session = ? AND path = ?`, session, path)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (e *Engine) getNode(ctx context.Context, session, path string) (*nodeRow, error) {
	row := e.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE session = ? AND path = ?`, session, path)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ensureDirectoryChain walks the canonical path's ancestors (root first)
// and inserts any missing directory node, iteratively rather than
// recursively (SPEC_FULL.md §9).
func ensureDirectoryChain(ctx context.Context, tx *sql.Tx, session, path string, now time.Time) error {
	for _, ancestor := range pathvfs.Ancestors(path) {
		parentPath, hasParent := pathvfs.Parent(ancestor)
		if err := upsertDirectory(ctx, tx, session, ancestor, hasParent, parentPath, now); err != nil {
			return err
		}
	}
	return nil
}

func upsertDirectory(ctx context.Context, tx *sql.Tx, session, path string, hasParent bool, parentPath string, now time.Time) error {
	existing, err := getNodeTx(ctx, tx, session, path)
	if err != nil {
		return wrapBackend("load directory node", err)
	}
	if existing != nil {
		return nil
	}
	var parent sql.NullString
	if hasParent {
		parent = sql.NullString{String: parentPath, Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO nodes (id, session, path, name, parent_path, type, created_at, updated_at, latest_version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		idgen.New(), session, path, pathvfs.Basename(path), parent, TypeDirectory, now, now)
	if err != nil {
		return wrapBackend("insert directory node", err)
	}
	return nil
}

// WriteFile creates or overwrites the file at path with bytes, auto-
// materialising any missing ancestor directories, and returns a snapshot
// of the updated node (SPEC_FULL.md §4.D).
func (e *Engine) WriteFile(ctx context.Context, path string, content []byte, session string) (VirtualEntry, error) {
	session = normalizeSession(session)
	canon, err := pathvfs.Normalize(path)
	if err != nil {
		return VirtualEntry{}, pathErr(KindInvalidPath, "", err)
	}

	var result VirtualEntry
	now := time.Now().UTC()
	err = e.db.WriteTx(ctx, session, func(tx *sql.Tx) error {
		// The root is ensured explicitly: Ancestors("/") is empty, so the
		// chain below would not create it when canon is "/" itself.
		if err := upsertDirectory(ctx, tx, session, "/", false, "", now); err != nil {
			return err
		}
		if err := ensureDirectoryChain(ctx, tx, session, canon, now); err != nil {
			return err
		}

		existing, err := getNodeTx(ctx, tx, session, canon)
		if err != nil {
			return wrapBackend("load node", err)
		}

		switch {
		case existing == nil:
			id := idgen.New()
			parentPath, _ := pathvfs.Parent(canon)
			_, err := tx.ExecContext(ctx,
				`INSERT INTO nodes (id, session, path, name, parent_path, type, created_at, updated_at, latest_version)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
				id, session, canon, pathvfs.Basename(canon), parentPath, TypeFile, now, now)
			if err != nil {
				return wrapBackend("insert file node", err)
			}
			if err := insertVersion(ctx, tx, id, 1, content, now); err != nil {
				return err
			}
			result = VirtualEntry{
				ID: id, Session: session, Path: canon, Name: pathvfs.Basename(canon),
				ParentPath: &parentPath, Type: TypeFile, CreatedAt: now, UpdatedAt: now,
				LatestVersion: intPtr(1),
			}
			return nil

		case existing.typ == TypeDirectory:
			return newErr(KindIsDirectory, canon, "cannot write bytes onto a directory")

		default:
			nextVersion := 1
			if existing.latestVersion.Valid {
				nextVersion = int(existing.latestVersion.Int64) + 1
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE nodes SET latest_version = ?, updated_at = ? WHERE id = ?`,
				nextVersion, now, existing.id); err != nil {
				return wrapBackend("update file node", err)
			}
			if err := insertVersion(ctx, tx, existing.id, nextVersion, content, now); err != nil {
				return err
			}
			entry := existing.toEntry()
			entry.UpdatedAt = now
			entry.LatestVersion = intPtr(nextVersion)
			result = entry
			return nil
		}
	})
	if err != nil {
		return VirtualEntry{}, err
	}
	return result, nil
}

func insertVersion(ctx context.Context, tx *sql.Tx, nodeID string, version int, content []byte, now time.Time) error {
	if content == nil {
		content = []byte{}
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO file_versions (id, node_id, version, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		idgen.New(), nodeID, version, content, now)
	if err != nil {
		return wrapBackend("insert version", err)
	}
	return nil
}

func intPtr(v int) *int { return &v }

// ReadFile returns the file at path joined with its latest version's
// content, or ok=false if no such file exists (directories and missing
// paths both report ok=false).
func (e *Engine) ReadFile(ctx context.Context, path string, session string) (entry VirtualEntry, ok bool, err error) {
	session = normalizeSession(session)
	canon, nerr := pathvfs.Normalize(path)
	if nerr != nil {
		return VirtualEntry{}, false, pathErr(KindInvalidPath, "", nerr)
	}

	node, err := e.getNode(ctx, session, canon)
	if err != nil {
		return VirtualEntry{}, false, wrapBackend("load node", err)
	}
	if node == nil || node.typ != TypeFile || !node.latestVersion.Valid {
		return VirtualEntry{}, false, nil
	}

	var content []byte
	row := e.db.QueryRowContext(ctx,
		`SELECT content FROM file_versions WHERE node_id = ? AND version = ?`,
		node.id, node.latestVersion.Int64)
	if err := row.Scan(&content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return VirtualEntry{}, false, nil
		}
		return VirtualEntry{}, false, wrapBackend("load latest version content", err)
	}

	result := node.toEntry()
	result.Content = content
	result.HasContent = true
	return result, true, nil
}

// ListDirectory lists the immediate children of the directory at path,
// partitioned into directories and files, each ordered by name ascending.
func (e *Engine) ListDirectory(ctx context.Context, path string, session string) (DirectoryListing, error) {
	session = normalizeSession(session)
	canon, err := pathvfs.Normalize(path)
	if err != nil {
		return DirectoryListing{}, pathErr(KindInvalidPath, "", err)
	}

	node, err := e.getNode(ctx, session, canon)
	if err != nil {
		return DirectoryListing{}, wrapBackend("load node", err)
	}
	if node == nil {
		if canon != "/" {
			return DirectoryListing{}, newErr(KindNotADirectory, canon, "no such directory")
		}
		now := time.Now().UTC()
		if err := e.db.WriteTx(ctx, session, func(tx *sql.Tx) error {
			return upsertDirectory(ctx, tx, session, "/", false, "", now)
		}); err != nil {
			return DirectoryListing{}, err
		}
		return DirectoryListing{}, nil
	}
	if node.typ != TypeDirectory {
		return DirectoryListing{}, newErr(KindNotADirectory, canon, "path is a file")
	}

	rows, err := e.db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE session = ? AND parent_path = ? ORDER BY name ASC`,
		session, canon)
	if err != nil {
		return DirectoryListing{}, wrapBackend("list children", err)
	}
	defer rows.Close()

	var listing DirectoryListing
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return DirectoryListing{}, wrapBackend("scan child", err)
		}
		entry := n.toEntry()
		if n.typ == TypeDirectory {
			listing.Directories = append(listing.Directories, entry)
		} else {
			listing.Files = append(listing.Files, entry)
		}
	}
	if err := rows.Err(); err != nil {
		return DirectoryListing{}, wrapBackend("iterate children", err)
	}
	return listing, nil
}

// RenameNode renames the file at path to newName within the same parent
// directory.
func (e *Engine) RenameNode(ctx context.Context, path, newName, session string) (VirtualEntry, error) {
	session = normalizeSession(session)
	canon, err := pathvfs.Normalize(path)
	if err != nil {
		return VirtualEntry{}, pathErr(KindInvalidPath, "", err)
	}
	name, err := pathvfs.NormalizeName(newName)
	if err != nil {
		return VirtualEntry{}, pathErr(KindInvalidName, "", err)
	}
	if canon == "/" {
		return VirtualEntry{}, newErr(KindInvalidOperation, canon, "cannot rename the root")
	}
	parent, _ := pathvfs.Parent(canon)
	target := pathvfs.Join(parent, name)
	return e.relocate(ctx, session, canon, target)
}

// MoveNode moves the file at path into newDirectory, keeping its
// basename.
func (e *Engine) MoveNode(ctx context.Context, path, newDirectory, session string) (VirtualEntry, error) {
	session = normalizeSession(session)
	canon, err := pathvfs.Normalize(path)
	if err != nil {
		return VirtualEntry{}, pathErr(KindInvalidPath, "", err)
	}
	newDir, err := pathvfs.Normalize(newDirectory)
	if err != nil {
		return VirtualEntry{}, pathErr(KindInvalidPath, "", err)
	}
	target := pathvfs.Join(newDir, pathvfs.Basename(canon))
	if target == canon {
		return VirtualEntry{}, newErr(KindInvalidOperation, canon, "cannot move a node onto itself")
	}
	return e.relocate(ctx, session, canon, target)
}

// relocate implements the shared rename/move routine from SPEC_FULL.md
// §4.D: reject root relocation, require a file source, require a free
// target, materialise the target's ancestor chain, then update the
// node's path/name/parent_path in place — version rows are untouched, so
// identity and history survive the move.
func (e *Engine) relocate(ctx context.Context, session, from, to string) (VirtualEntry, error) {
	if from == "/" {
		return VirtualEntry{}, newErr(KindInvalidOperation, from, "cannot relocate the root")
	}

	var result VirtualEntry
	now := time.Now().UTC()
	err := e.db.WriteTx(ctx, session, func(tx *sql.Tx) error {
		source, err := getNodeTx(ctx, tx, session, from)
		if err != nil {
			return wrapBackend("load source node", err)
		}
		if source == nil {
			return newErr(KindNotFound, from, "node not found")
		}
		if source.typ != TypeFile {
			return newErr(KindUnsupportedKind, from, "directory rename/move is not supported")
		}

		newParent, hasParent := pathvfs.Parent(to)
		if !hasParent {
			return newErr(KindInvalidPath, to, "target has no parent")
		}

		conflict, err := getNodeTx(ctx, tx, session, to)
		if err != nil {
			return wrapBackend("check target", err)
		}
		if conflict != nil {
			return newErr(KindAlreadyExists, to, "target already exists")
		}

		if err := ensureDirectoryChain(ctx, tx, session, to, now); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE nodes SET path = ?, name = ?, parent_path = ?, updated_at = ? WHERE id = ?`,
			to, pathvfs.Basename(to), newParent, now, source.id); err != nil {
			return wrapBackend("update node path", err)
		}

		entry := source.toEntry()
		entry.Path = to
		entry.Name = pathvfs.Basename(to)
		entry.ParentPath = &newParent
		entry.UpdatedAt = now
		result = entry
		return nil
	})
	if err != nil {
		return VirtualEntry{}, err
	}
	return result, nil
}

// GetFileHistory returns every version of the file at path, newest
// first. It returns an empty slice (no error) if the file does not
// exist.
func (e *Engine) GetFileHistory(ctx context.Context, path, session string) ([]FileVersion, error) {
	session = normalizeSession(session)
	canon, err := pathvfs.Normalize(path)
	if err != nil {
		return nil, pathErr(KindInvalidPath, "", err)
	}

	node, err := e.getNode(ctx, session, canon)
	if err != nil {
		return nil, wrapBackend("load node", err)
	}
	if node == nil || node.typ != TypeFile {
		return nil, nil
	}

	rows, err := e.db.QueryContext(ctx,
		`SELECT id, node_id, version, content, created_at FROM file_versions WHERE node_id = ? ORDER BY version DESC`,
		node.id)
	if err != nil {
		return nil, wrapBackend("query history", err)
	}
	defer rows.Close()

	var out []FileVersion
	for rows.Next() {
		var v FileVersion
		if err := rows.Scan(&v.ID, &v.NodeID, &v.Version, &v.Content, &v.CreatedAt); err != nil {
			return nil, wrapBackend("scan version", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapBackend("iterate history", err)
	}
	return out, nil
}

// AllLatestFiles returns every file node in session with its latest
// version content, ordered by path ascending — the read path
// export_session_zip streams through the archive encoder.
func (e *Engine) AllLatestFiles(ctx context.Context, session string) ([]VirtualEntry, error) {
	session = normalizeSession(session)
	rows, err := e.db.QueryContext(ctx,
		`SELECT n.id, n.session, n.path, n.name, n.parent_path, n.type, n.created_at, n.updated_at, n.latest_version, v.content
		 FROM nodes n
		 JOIN file_versions v ON v.node_id = n.id AND v.version = n.latest_version
		 WHERE n.session = ? AND n.type = 'file'
		 ORDER BY n.path ASC`, session)
	if err != nil {
		return nil, wrapBackend("query session files", err)
	}
	defer rows.Close()

	var out []VirtualEntry
	for rows.Next() {
		var n nodeRow
		var content []byte
		if err := rows.Scan(&n.id, &n.session, &n.path, &n.name, &n.parentPath, &n.typ, &n.createdAt, &n.updatedAt, &n.latestVersion, &content); err != nil {
			return nil, wrapBackend("scan session file", err)
		}
		entry := n.toEntry()
		entry.Content = content
		entry.HasContent = true
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapBackend("iterate session files", err)
	}
	return out, nil
}

// EnsureRoot materialises the session root if it is absent, mirroring
// the auto-create branch ListDirectory takes for "/".
func (e *Engine) EnsureRoot(ctx context.Context, session string) error {
	session = normalizeSession(session)
	now := time.Now().UTC()
	return e.db.WriteTx(ctx, session, func(tx *sql.Tx) error {
		return upsertDirectory(ctx, tx, session, "/", false, "", now)
	})
}

// EnsureDirectory materialises path and every missing ancestor as
// directory nodes, the billy.Filesystem MkdirAll backing operation.
func (e *Engine) EnsureDirectory(ctx context.Context, path, session string) error {
	session = normalizeSession(session)
	canon, err := pathvfs.Normalize(path)
	if err != nil {
		return pathErr(KindInvalidPath, "", err)
	}
	now := time.Now().UTC()
	return e.db.WriteTx(ctx, session, func(tx *sql.Tx) error {
		if err := ensureDirectoryChain(ctx, tx, session, canon, now); err != nil {
			return err
		}
		parentPath, hasParent := pathvfs.Parent(canon)
		return upsertDirectory(ctx, tx, session, canon, hasParent, parentPath, now)
	})
}

// Sessions returns the distinct session identifiers that have ever been
// written to (used by the CLI's --dump mode).
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	rows, err := e.db.QueryContext(ctx, `SELECT DISTINCT session FROM nodes ORDER BY session ASC`)
	if err != nil {
		return nil, wrapBackend("query sessions", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, wrapBackend("scan session", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
