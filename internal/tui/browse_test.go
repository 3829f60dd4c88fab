package tui

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/simbo1905/threadbox-mcp/internal/storage"
)

func newTestEngine(t *testing.T) *storage.Engine {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, filepath.Join(t.TempDir(), "threadbox.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewEngine(db)
}

func TestNewModelListsRootEntries(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)
	if _, err := eng.WriteFile(ctx, "/notes/a.md", []byte("# hi"), ""); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m, err := newModel(ctx, eng, "", "/")
	if err != nil {
		t.Fatalf("newModel: %v", err)
	}
	if len(m.list.Items()) != 1 {
		t.Fatalf("expected one directory entry at root, got %d", len(m.list.Items()))
	}
}

func TestReloadUpdatesTitleAndClearsPreview(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)
	if _, err := eng.WriteFile(ctx, "/a.txt", []byte("hi"), "s1"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m, err := newModel(ctx, eng, "s1", "/")
	if err != nil {
		t.Fatalf("newModel: %v", err)
	}
	m.preview = "stale"
	if err := m.reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if m.preview != "" {
		t.Fatalf("expected reload to clear preview, got %q", m.preview)
	}
	if m.list.Title == "" {
		t.Fatal("expected a non-empty list title")
	}
}

func TestLoadPreviewRendersTextFile(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)
	if _, err := eng.WriteFile(ctx, "/a.txt", []byte("hello"), ""); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m, err := newModel(ctx, eng, "", "/")
	if err != nil {
		t.Fatalf("newModel: %v", err)
	}
	m.loadPreview("/a.txt")
	if m.preview != "hello" {
		t.Fatalf("expected raw preview text, got %q", m.preview)
	}
}

func TestLoadPreviewMissingFileSetsErrorText(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	m, err := newModel(ctx, eng, "", "/")
	if err != nil {
		t.Fatalf("newModel: %v", err)
	}
	m.loadPreview("/missing.txt")
	if m.preview == "" {
		t.Fatal("expected a not-found message in preview")
	}
}
