package billyfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/simbo1905/threadbox-mcp/internal/storage"
)

func newTestEngine(t *testing.T) *storage.Engine {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, filepath.Join(t.TempDir(), "billyfs.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewEngine(db)
}

func TestCreateWriteCloseThenOpenRead(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)
	fs := New(ctx, eng, "sess-a")

	f, err := fs.Create("/notes/todo.txt")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.Write([]byte("buy milk")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := fs.Open("/notes/todo.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "buy milk" {
		t.Fatalf("got %q, want %q", data, "buy milk")
	}
}

func TestOpenMissingFails(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)
	fs := New(ctx, eng, "sess-a")

	_, err := fs.Open("/nope.txt")
	if !os.IsNotExist(err) {
		t.Fatalf("Open missing = %v, want IsNotExist", err)
	}
}

func TestRenameAndRemoveAreReadOnly(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)
	fs := New(ctx, eng, "sess-a")

	if err := fs.Rename("/a.txt", "/b.txt"); err != errReadOnly {
		t.Fatalf("Rename = %v, want errReadOnly", err)
	}
	if err := fs.Remove("/a.txt"); err != errReadOnly {
		t.Fatalf("Remove = %v, want errReadOnly", err)
	}
}

func TestReadDirListsChildren(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)
	fs := New(ctx, eng, "sess-a")

	if err := fs.MkdirAll("/docs/sub", 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if _, err := eng.WriteFile(ctx, "/docs/readme.md", []byte("# hi"), "sess-a"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	infos, err := fs.ReadDir("/docs")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	if len(names) != 2 {
		t.Fatalf("ReadDir returned %v, want 2 entries", names)
	}
}
