package tools

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/simbo1905/threadbox-mcp/internal/storage"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, filepath.Join(t.TempDir(), "threadbox.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	eng := storage.NewEngine(db)
	return NewDispatcher(eng, filepath.Join(t.TempDir(), "exports"))
}

func TestDispatchWriteThenReadFile(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	res := d.Dispatch(ctx, "write_file", map[string]any{
		"path":    "/notes/a.txt",
		"content": "hello",
	})
	if res.IsError {
		t.Fatalf("write_file errored: %s", res.Payload)
	}
	var writeOut struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal([]byte(res.Payload), &writeOut); err != nil {
		t.Fatalf("decode write_file payload: %v", err)
	}
	if writeOut.Version != 1 {
		t.Fatalf("version = %d, want 1", writeOut.Version)
	}

	res = d.Dispatch(ctx, "read_file", map[string]any{"path": "/notes/a.txt"})
	if res.IsError {
		t.Fatalf("read_file errored: %s", res.Payload)
	}
	var readOut struct {
		Content string `json:"content"`
		Base64  bool   `json:"base64"`
	}
	if err := json.Unmarshal([]byte(res.Payload), &readOut); err != nil {
		t.Fatalf("decode read_file payload: %v", err)
	}
	if readOut.Base64 || readOut.Content != "hello" {
		t.Fatalf("got content=%q base64=%v, want hello/false", readOut.Content, readOut.Base64)
	}
}

func TestDispatchWriteFileBase64Decode(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	encoded := base64.StdEncoding.EncodeToString([]byte{0x00, 0xFF, 0x10})
	res := d.Dispatch(ctx, "write_file", map[string]any{
		"path":    "/bin/blob",
		"content": encoded,
		"base64":  true,
	})
	if res.IsError {
		t.Fatalf("write_file errored: %s", res.Payload)
	}

	res = d.Dispatch(ctx, "read_file", map[string]any{"path": "/bin/blob"})
	if res.IsError {
		t.Fatalf("read_file errored: %s", res.Payload)
	}
	var readOut struct {
		Content string `json:"content"`
		Base64  bool   `json:"base64"`
	}
	if err := json.Unmarshal([]byte(res.Payload), &readOut); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !readOut.Base64 {
		t.Fatal("expected base64=true for non-UTF-8 content")
	}
	if readOut.Content != encoded {
		t.Fatalf("got %q, want %q", readOut.Content, encoded)
	}
}

func TestDispatchWriteFileBadBase64(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	res := d.Dispatch(ctx, "write_file", map[string]any{
		"path":    "/bin/blob",
		"content": "not-valid-base64!!",
		"base64":  true,
	})
	if !res.IsError {
		t.Fatal("expected error for invalid base64 content")
	}
}

func TestDispatchReadMissingFile(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	res := d.Dispatch(ctx, "read_file", map[string]any{"path": "/nope.txt"})
	if !res.IsError {
		t.Fatal("expected error for missing file")
	}
	if res.Payload != "File not found: /nope.txt" {
		t.Fatalf("payload = %q, want exact not-found message", res.Payload)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	res := d.Dispatch(ctx, "delete_everything", map[string]any{})
	if !res.IsError {
		t.Fatal("expected error for unknown tool")
	}
}

func TestDispatchMissingRequiredArgument(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	res := d.Dispatch(ctx, "write_file", map[string]any{"content": "x"})
	if !res.IsError {
		t.Fatal("expected schema validation error for missing path")
	}
}

func TestDispatchRenameConflictProjectsStorageError(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	d.Dispatch(ctx, "write_file", map[string]any{"path": "/a.txt", "content": "A"})
	d.Dispatch(ctx, "write_file", map[string]any{"path": "/b.txt", "content": "B"})

	res := d.Dispatch(ctx, "rename_node", map[string]any{"path": "/a.txt", "newName": "b.txt"})
	if !res.IsError {
		t.Fatal("expected AlreadyExists error")
	}
}

func TestDispatchExportSessionZip(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)

	res := d.Dispatch(ctx, "write_file", map[string]any{
		"path":      "/docs/readme.md",
		"content":   "export me",
		"sessionId": "s1",
	})
	if res.IsError {
		t.Fatalf("write_file errored: %s", res.Payload)
	}

	res = d.Dispatch(ctx, "export_session_zip", map[string]any{"sessionId": "s1"})
	if res.IsError {
		t.Fatalf("export_session_zip errored: %s", res.Payload)
	}

	var out struct {
		DownloadPath string `json:"downloadPath"`
	}
	if err := json.Unmarshal([]byte(res.Payload), &out); err != nil {
		t.Fatalf("decode export payload: %v", err)
	}

	data, err := os.ReadFile(out.DownloadPath)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	if len(r.File) != 1 || r.File[0].Name != "docs/readme.md" {
		t.Fatalf("archive members = %+v, want exactly docs/readme.md", r.File)
	}
	rc, err := r.File[0].Open()
	if err != nil {
		t.Fatalf("open member: %v", err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read member: %v", err)
	}
	if string(content) != "export me" {
		t.Fatalf("member content = %q, want %q", content, "export me")
	}
}
