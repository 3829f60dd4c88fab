package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/simbo1905/threadbox-mcp/internal/archive"
	"github.com/simbo1905/threadbox-mcp/internal/metrics"
	"github.com/simbo1905/threadbox-mcp/internal/storage"
)

// ToolResult is the dispatcher's response envelope: a success payload is
// JSON, an error payload is a human-readable sentence.
type ToolResult struct {
	IsError bool
	Payload string
}

func errorResult(format string, args ...any) ToolResult {
	return ToolResult{IsError: true, Payload: fmt.Sprintf(format, args...)}
}

func jsonResult(v any) ToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult("encode result: %s", err)
	}
	return ToolResult{Payload: string(data)}
}

// Dispatcher wraps one storage.Engine and exposes the fixed tool set as
// both named methods and a generic Dispatch entry point, grounded on
// gert's pkg/ecosystem/mcp handlers (HandleValidate/HandleExec/
// HandleSchema pulling typed arguments out of req.GetArguments() and
// returning a text-or-error envelope).
type Dispatcher struct {
	eng       *storage.Engine
	exportDir string
}

// NewDispatcher builds a Dispatcher. exportDir is where export_session_zip
// writes archives when the caller does not supply an explicit destination;
// it is created on first use.
func NewDispatcher(eng *storage.Engine, exportDir string) *Dispatcher {
	return &Dispatcher{eng: eng, exportDir: exportDir}
}

// Dispatch validates args against the named tool's JSON Schema, then
// routes to the matching engine operation. Unknown tool names, schema
// violations, and storage errors are all projected into ToolResult —
// nothing here ever panics the server.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) ToolResult {
	schema, ok := JSONSchema(name)
	if !ok {
		return errorResult("unknown tool %q", name)
	}
	if err := schema.Validate(toInterface(args)); err != nil {
		return errorResult("invalid arguments for %s: %s", name, err)
	}

	switch name {
	case "write_file":
		return d.WriteFile(ctx, args)
	case "read_file":
		return d.ReadFile(ctx, args)
	case "list_directory":
		return d.ListDirectory(ctx, args)
	case "rename_node":
		return d.RenameNode(ctx, args)
	case "move_node":
		return d.MoveNode(ctx, args)
	case "export_session_zip":
		return d.ExportSessionZip(ctx, args)
	default:
		return errorResult("unknown tool %q", name)
	}
}

// toInterface round-trips args through JSON so the jsonschema validator
// sees plain map[string]interface{}/float64/bool values regardless of
// how the caller built the map.
func toInterface(args map[string]any) any {
	data, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return args
	}
	return v
}

func decodeArgs[T any](args map[string]any, dst *T) error {
	data, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// WriteFile implements the write_file tool.
func (d *Dispatcher) WriteFile(ctx context.Context, args map[string]any) ToolResult {
	var a WriteFileArgs
	if err := decodeArgs(args, &a); err != nil {
		return errorResult("decode write_file arguments: %s", err)
	}

	var content []byte
	if a.Base64 {
		decoded, err := base64.StdEncoding.DecodeString(a.Content)
		if err != nil {
			return projectError(storage.NewDecodeError(a.Path, err))
		}
		content = decoded
	} else {
		content = []byte(a.Content)
	}

	var entry storage.VirtualEntry
	err := metrics.Track(metrics.OpWriteFile, func() error {
		var err error
		entry, err = d.eng.WriteFile(ctx, a.Path, content, a.SessionID)
		return err
	})
	if err != nil {
		return projectError(err)
	}

	return jsonResult(map[string]any{
		"inodeId":   entry.ID,
		"path":      entry.Path,
		"version":   versionOf(entry),
		"sessionId": a.SessionID,
	})
}

// ReadFile implements the read_file tool.
func (d *Dispatcher) ReadFile(ctx context.Context, args map[string]any) ToolResult {
	var a ReadFileArgs
	if err := decodeArgs(args, &a); err != nil {
		return errorResult("decode read_file arguments: %s", err)
	}

	var entry storage.VirtualEntry
	var ok bool
	err := metrics.Track(metrics.OpReadFile, func() error {
		var err error
		entry, ok, err = d.eng.ReadFile(ctx, a.Path, a.SessionID)
		return err
	})
	if err != nil {
		return projectError(err)
	}
	if !ok {
		return errorResult("File not found: %s", a.Path)
	}

	var content string
	var isBase64 bool
	if utf8.Valid(entry.Content) {
		content = string(entry.Content)
	} else {
		content = base64.StdEncoding.EncodeToString(entry.Content)
		isBase64 = true
	}

	return jsonResult(map[string]any{
		"inodeId":   entry.ID,
		"path":      entry.Path,
		"version":   versionOf(entry),
		"content":   content,
		"base64":    isBase64,
		"sessionId": a.SessionID,
	})
}

// ListDirectory implements the list_directory tool.
func (d *Dispatcher) ListDirectory(ctx context.Context, args map[string]any) ToolResult {
	var a ListDirectoryArgs
	if err := decodeArgs(args, &a); err != nil {
		return errorResult("decode list_directory arguments: %s", err)
	}

	var listing storage.DirectoryListing
	err := metrics.Track(metrics.OpListDirectory, func() error {
		var err error
		listing, err = d.eng.ListDirectory(ctx, a.Path, a.SessionID)
		return err
	})
	if err != nil {
		return projectError(err)
	}

	dirs := make([]map[string]any, 0, len(listing.Directories))
	for _, e := range listing.Directories {
		dirs = append(dirs, map[string]any{
			"name":      e.Name,
			"path":      e.Path,
			"inodeId":   e.ID,
			"updatedAt": e.UpdatedAt,
		})
	}
	files := make([]map[string]any, 0, len(listing.Files))
	for _, e := range listing.Files {
		files = append(files, map[string]any{
			"name":      e.Name,
			"path":      e.Path,
			"inodeId":   e.ID,
			"version":   versionOf(e),
			"updatedAt": e.UpdatedAt,
		})
	}

	return jsonResult(map[string]any{
		"path":        a.Path,
		"sessionId":   a.SessionID,
		"directories": dirs,
		"files":       files,
	})
}

// RenameNode implements the rename_node tool.
func (d *Dispatcher) RenameNode(ctx context.Context, args map[string]any) ToolResult {
	var a RenameNodeArgs
	if err := decodeArgs(args, &a); err != nil {
		return errorResult("decode rename_node arguments: %s", err)
	}

	var entry storage.VirtualEntry
	err := metrics.Track(metrics.OpRenameNode, func() error {
		var err error
		entry, err = d.eng.RenameNode(ctx, a.Path, a.NewName, a.SessionID)
		return err
	})
	if err != nil {
		return projectError(err)
	}

	return jsonResult(map[string]any{
		"inodeId":   entry.ID,
		"path":      entry.Path,
		"version":   versionOf(entry),
		"sessionId": a.SessionID,
	})
}

// MoveNode implements the move_node tool.
func (d *Dispatcher) MoveNode(ctx context.Context, args map[string]any) ToolResult {
	var a MoveNodeArgs
	if err := decodeArgs(args, &a); err != nil {
		return errorResult("decode move_node arguments: %s", err)
	}

	var entry storage.VirtualEntry
	err := metrics.Track(metrics.OpMoveNode, func() error {
		var err error
		entry, err = d.eng.MoveNode(ctx, a.Path, a.NewDirectory, a.SessionID)
		return err
	})
	if err != nil {
		return projectError(err)
	}

	return jsonResult(map[string]any{
		"inodeId":   entry.ID,
		"path":      entry.Path,
		"version":   versionOf(entry),
		"sessionId": a.SessionID,
	})
}

// ExportSessionZip implements the export_session_zip tool.
func (d *Dispatcher) ExportSessionZip(ctx context.Context, args map[string]any) ToolResult {
	var a ExportSessionZipArgs
	if err := decodeArgs(args, &a); err != nil {
		return errorResult("decode export_session_zip arguments: %s", err)
	}

	var files []storage.VirtualEntry
	err := metrics.Track(metrics.OpExportSessionZip, func() error {
		var err error
		files, err = d.eng.AllLatestFiles(ctx, a.SessionID)
		return err
	})
	if err != nil {
		return projectError(err)
	}

	data, err := archive.WriteSessionZip(files)
	if err != nil {
		return errorResult("build archive: %s", err)
	}

	dir := a.Destination
	if dir == "" {
		dir = d.exportDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errorResult("create export directory: %s", err)
	}
	dest, err := filepath.Abs(filepath.Join(dir, exportFileName(a.SessionID)))
	if err != nil {
		return errorResult("resolve archive path: %s", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return errorResult("write archive: %s", err)
	}

	return jsonResult(map[string]any{
		"sessionId":    a.SessionID,
		"downloadPath": dest,
	})
}

func exportFileName(session string) string {
	return fmt.Sprintf("threadbox-session-%s-%s.zip", safeSessionName(session), time.Now().UTC().Format("2006-01-02T150405Z"))
}

// safeSessionName implements SPEC_FULL.md §4.E/§4.F's safe(): every
// character outside [A-Za-z0-9_-] becomes '-', and the empty session
// maps to "default".
func safeSessionName(session string) string {
	if session == "" {
		return "default"
	}
	var b strings.Builder
	for _, r := range session {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

func versionOf(e storage.VirtualEntry) int {
	if e.LatestVersion == nil {
		return 0
	}
	return *e.LatestVersion
}

// projectError turns a *storage.Error (or anything else) into an error
// ToolResult without ever letting a panic escape the dispatcher (§7).
func projectError(err error) ToolResult {
	var se *storage.Error
	if errors.As(err, &se) {
		if se.Path != "" {
			return errorResult("%s: %s", se.Msg, se.Path)
		}
		return errorResult("%s", se.Msg)
	}
	return errorResult("internal error: %s", err)
}
