package shell

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/simbo1905/threadbox-mcp/internal/storage"
	"github.com/simbo1905/threadbox-mcp/internal/tools"
)

func newTestDispatcher(t *testing.T) *tools.Dispatcher {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, filepath.Join(t.TempDir(), "threadbox.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	eng := storage.NewEngine(db)
	return tools.NewDispatcher(eng, filepath.Join(t.TempDir(), "exports"))
}

func TestHandleWriteThenCat(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)
	var out bytes.Buffer

	handleWrite(ctx, &out, d, "write /notes/a.txt hello world", "")
	if strings.Contains(out.String(), "error") {
		t.Fatalf("unexpected write error: %s", out.String())
	}

	out.Reset()
	handleCat(ctx, &out, d, []string{"/notes/a.txt"}, "")
	if !strings.Contains(out.String(), "hello world") {
		t.Fatalf("expected content in output, got %q", out.String())
	}
}

func TestHandleCatMissingPath(t *testing.T) {
	d := newTestDispatcher(t)
	var out bytes.Buffer
	handleCat(context.Background(), &out, d, nil, "")
	if !strings.Contains(out.String(), "usage:") {
		t.Fatalf("expected usage message, got %q", out.String())
	}
}

func TestHandleLSDefaultsToRoot(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)
	var out bytes.Buffer

	handleWrite(ctx, &out, d, "write /a.txt hi", "")
	out.Reset()

	handleLS(ctx, &out, d, nil, "")
	if !strings.Contains(out.String(), "a.txt") {
		t.Fatalf("expected a.txt in listing, got %q", out.String())
	}
}

func TestHandleMoveAndRename(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)
	var out bytes.Buffer

	handleWrite(ctx, &out, d, "write /a.txt hi", "")
	out.Reset()

	handleRename(ctx, &out, d, []string{"/a.txt", "b.txt"}, "")
	if strings.Contains(out.String(), "error") {
		t.Fatalf("unexpected rename error: %s", out.String())
	}

	out.Reset()
	handleMove(ctx, &out, d, []string{"/b.txt", "/archive"}, "")
	if strings.Contains(out.String(), "error") {
		t.Fatalf("unexpected move error: %s", out.String())
	}

	out.Reset()
	handleCat(ctx, &out, d, []string{"/archive/b.txt"}, "")
	if !strings.Contains(out.String(), "hi") {
		t.Fatalf("expected relocated file to be readable, got %q", out.String())
	}
}

func TestHandleMoveWrongArgCount(t *testing.T) {
	d := newTestDispatcher(t)
	var out bytes.Buffer
	handleMove(context.Background(), &out, d, []string{"/only-one"}, "")
	if !strings.Contains(out.String(), "usage:") {
		t.Fatalf("expected usage message, got %q", out.String())
	}
}

func TestHandleZipExportsArchive(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(t)
	var out bytes.Buffer

	handleWrite(ctx, &out, d, "write /a.txt hi", "session-1")
	out.Reset()

	handleZip(ctx, &out, d, "session-1")
	if !strings.Contains(out.String(), "downloadPath") {
		t.Fatalf("expected downloadPath in zip output, got %q", out.String())
	}
}

func TestHandleSessionShowsAndSwitches(t *testing.T) {
	var out bytes.Buffer
	got := handleSession(&out, nil, "alpha")
	if got != "alpha" {
		t.Fatalf("expected session unchanged, got %q", got)
	}

	out.Reset()
	got = handleSession(&out, []string{"beta"}, "alpha")
	if got != "beta" {
		t.Fatalf("expected switched session, got %q", got)
	}
}

func TestPrintResultFormatsJSONAndErrors(t *testing.T) {
	var out bytes.Buffer
	printResult(&out, tools.ToolResult{Payload: `{"path":"/a.txt"}`})
	if !strings.Contains(out.String(), "\"path\": \"/a.txt\"") {
		t.Fatalf("expected pretty-printed JSON, got %q", out.String())
	}

	out.Reset()
	printResult(&out, tools.ToolResult{IsError: true, Payload: "boom"})
	if !strings.Contains(out.String(), "error: boom") {
		t.Fatalf("expected error line, got %q", out.String())
	}
}
