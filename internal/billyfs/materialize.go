package billyfs

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/simbo1905/threadbox-mcp/internal/pathvfs"
	"github.com/simbo1905/threadbox-mcp/internal/storage"
)

// Materialize walks a session's tree through the billy.Filesystem adapter
// and writes every file onto destDir on the host filesystem, preserving
// the virtual path layout. This is cmd/threadbox's --mount mode: it is
// the concrete consumer that exercises FS.ReadDir and FS.Open from
// product code rather than leaving the adapter reachable only from
// its own tests.
func Materialize(ctx context.Context, eng *storage.Engine, session, destDir string) error {
	fs := New(ctx, eng, session)
	return materializeDir(fs, "/", destDir)
}

func materializeDir(fs *FS, virtualDir, hostDir string) error {
	if err := os.MkdirAll(hostDir, 0o755); err != nil {
		return err
	}

	infos, err := fs.ReadDir(virtualDir)
	if err != nil {
		return err
	}

	for _, info := range infos {
		virtualPath := pathvfs.Join(virtualDir, info.Name())
		hostPath := filepath.Join(hostDir, info.Name())

		if info.IsDir() {
			if err := materializeDir(fs, virtualPath, hostPath); err != nil {
				return err
			}
			continue
		}

		if err := materializeFile(fs, virtualPath, hostPath); err != nil {
			return err
		}
	}
	return nil
}

func materializeFile(fs *FS, virtualPath, hostPath string) error {
	f, err := fs.Open(virtualPath)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	return os.WriteFile(hostPath, data, 0o644)
}
