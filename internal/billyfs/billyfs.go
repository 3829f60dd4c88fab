// Package billyfs adapts a storage.Engine to go-git/go-billy/v5's
// billy.Filesystem so ThreadBox sessions can be handed to any billy
// consumer (git checkouts, language-server virtual roots, …). It is
// grounded on agentic-research's internal/nfsmount.GraphFS, which
// performs the same graph-to-billy adaptation for a different backing
// store, including its bytesFile/writeFile split between read-only and
// buffered-write file handles. SPEC_FULL.md §9 narrows that shape:
// Rename and Remove are refused rather than adapted, since the storage
// engine has no directory-rename and no delete semantics to back them.
package billyfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"

	"github.com/simbo1905/threadbox-mcp/internal/pathvfs"
	"github.com/simbo1905/threadbox-mcp/internal/storage"
)

var errReadOnly = fmt.Errorf("threadbox: operation not supported on the virtual filesystem")

// FS adapts one (engine, session) pair to billy.Filesystem.
type FS struct {
	ctx     context.Context
	eng     *storage.Engine
	session string
}

// New builds a billy.Filesystem view of one session. ctx bounds every
// call the adapter makes into the engine; callers that need per-call
// cancellation should wrap billy calls in their own goroutine.
func New(ctx context.Context, eng *storage.Engine, session string) *FS {
	return &FS{ctx: ctx, eng: eng, session: session}
}

func (fs *FS) Create(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

func (fs *FS) Open(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDONLY, 0)
}

func (fs *FS) OpenFile(filename string, flag int, _ os.FileMode) (billy.File, error) {
	writing := flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC) != 0
	if writing {
		var initial []byte
		if flag&os.O_TRUNC == 0 {
			entry, ok, err := fs.eng.ReadFile(fs.ctx, filename, fs.session)
			if err != nil {
				return nil, toPathError("open", filename, err)
			}
			if ok {
				initial = entry.Content
			}
		}
		return &writeFile{fs: fs, name: filename, buf: initial}, nil
	}

	entry, ok, err := fs.eng.ReadFile(fs.ctx, filename, fs.session)
	if err != nil {
		return nil, toPathError("open", filename, err)
	}
	if !ok {
		return nil, &os.PathError{Op: "open", Path: filename, Err: os.ErrNotExist}
	}
	return &readFile{name: filename, data: entry.Content}, nil
}

func (fs *FS) Stat(filename string) (os.FileInfo, error) {
	if filename == "/" || filename == "" {
		return staticInfo{name: "/", dir: true, modTime: time.Now()}, nil
	}

	entry, ok, err := fs.eng.ReadFile(fs.ctx, filename, fs.session)
	if err != nil {
		return nil, toPathError("stat", filename, err)
	}
	if ok {
		return staticInfo{name: entry.Name, size: int64(len(entry.Content)), modTime: entry.UpdatedAt}, nil
	}

	listing, err := fs.eng.ListDirectory(fs.ctx, filename, fs.session)
	if err != nil {
		return nil, &os.PathError{Op: "stat", Path: filename, Err: os.ErrNotExist}
	}
	_ = listing
	return staticInfo{name: pathvfs.Basename(filename), dir: true, modTime: time.Now()}, nil
}

func (fs *FS) Rename(oldpath, newpath string) error { return errReadOnly }

func (fs *FS) Remove(filename string) error { return errReadOnly }

func (fs *FS) Join(elem ...string) string {
	out := ""
	for _, e := range elem {
		out = pathvfs.Join(out, e)
	}
	return out
}

func (fs *FS) TempFile(dir, prefix string) (billy.File, error) {
	return nil, billy.ErrNotSupported
}

func (fs *FS) ReadDir(path string) ([]os.FileInfo, error) {
	listing, err := fs.eng.ListDirectory(fs.ctx, path, fs.session)
	if err != nil {
		return nil, toPathError("readdir", path, err)
	}

	infos := make([]os.FileInfo, 0, len(listing.Directories)+len(listing.Files))
	for _, d := range listing.Directories {
		infos = append(infos, staticInfo{name: d.Name, dir: true, modTime: d.UpdatedAt})
	}
	for _, f := range listing.Files {
		infos = append(infos, staticInfo{name: f.Name, modTime: f.UpdatedAt})
	}
	return infos, nil
}

func (fs *FS) MkdirAll(filename string, _ os.FileMode) error {
	return fs.eng.EnsureDirectory(fs.ctx, filename, fs.session)
}

func (fs *FS) Lstat(filename string) (os.FileInfo, error) { return fs.Stat(filename) }

func (fs *FS) Symlink(target, link string) error { return billy.ErrNotSupported }

func (fs *FS) Readlink(link string) (string, error) { return "", billy.ErrNotSupported }

func (fs *FS) Chroot(path string) (billy.Filesystem, error) {
	return chroot.New(fs, path), nil
}

func (fs *FS) Root() string { return "/" }

func (fs *FS) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.WriteCapability | billy.SeekCapability
}

func toPathError(op, path string, err error) error {
	if _, ok := err.(*storage.Error); ok {
		return &os.PathError{Op: op, Path: path, Err: os.ErrNotExist}
	}
	return &os.PathError{Op: op, Path: path, Err: err}
}

// readFile is a billy.File backed by an immutable byte slice, the same
// shape as nfsmount's bytesFile.
type readFile struct {
	name string
	data []byte
	pos  int64
}

func (f *readFile) Name() string { return f.name }

func (f *readFile) Read(p []byte) (int, error) {
	if f.pos >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *readFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *readFile) Seek(offset int64, whence int) (int64, error) {
	newPos, err := seekTo(offset, whence, f.pos, int64(len(f.data)))
	if err != nil {
		return 0, err
	}
	f.pos = newPos
	return f.pos, nil
}

func (f *readFile) Write([]byte) (int, error) { return 0, errReadOnly }
func (f *readFile) Truncate(int64) error      { return errReadOnly }
func (f *readFile) Lock() error               { return nil }
func (f *readFile) Unlock() error             { return nil }
func (f *readFile) Close() error              { return nil }

// writeFile buffers writes and commits them through WriteFile on Close,
// mirroring nfsmount's writeFile commit-on-Close discipline.
type writeFile struct {
	fs      *FS
	name    string
	buf     []byte
	pos     int64
	written bool
}

func (f *writeFile) Name() string { return f.name }

func (f *writeFile) Read(p []byte) (int, error) {
	if f.pos >= int64(len(f.buf)) {
		return 0, io.EOF
	}
	n := copy(p, f.buf[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *writeFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(f.buf)) {
		return 0, io.EOF
	}
	n := copy(p, f.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *writeFile) Write(p []byte) (int, error) {
	end := f.pos + int64(len(p))
	if end > int64(len(f.buf)) {
		grown := make([]byte, end)
		copy(grown, f.buf)
		f.buf = grown
	}
	n := copy(f.buf[f.pos:], p)
	f.pos += int64(n)
	f.written = true
	return n, nil
}

func (f *writeFile) Seek(offset int64, whence int) (int64, error) {
	newPos, err := seekTo(offset, whence, f.pos, int64(len(f.buf)))
	if err != nil {
		return 0, err
	}
	f.pos = newPos
	return f.pos, nil
}

func (f *writeFile) Truncate(size int64) error {
	if size < int64(len(f.buf)) {
		f.buf = f.buf[:size]
	} else if size > int64(len(f.buf)) {
		grown := make([]byte, size)
		copy(grown, f.buf)
		f.buf = grown
	}
	return nil
}

func (f *writeFile) Close() error {
	if !f.written {
		return nil
	}
	_, err := f.fs.eng.WriteFile(f.fs.ctx, f.name, f.buf, f.fs.session)
	return err
}

func (f *writeFile) Lock() error   { return nil }
func (f *writeFile) Unlock() error { return nil }

func seekTo(offset int64, whence int, cur, size int64) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = cur + offset
	case io.SeekEnd:
		newPos = size + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if newPos < 0 {
		newPos = 0
	}
	return newPos, nil
}

// staticInfo implements os.FileInfo with fixed values, the same shape as
// nfsmount's staticFileInfo.
type staticInfo struct {
	name    string
	size    int64
	dir     bool
	modTime time.Time
}

func (fi staticInfo) Name() string { return fi.name }
func (fi staticInfo) Size() int64  { return fi.size }
func (fi staticInfo) Mode() os.FileMode {
	if fi.dir {
		return os.ModeDir | 0o755
	}
	return 0o644
}
func (fi staticInfo) ModTime() time.Time { return fi.modTime }
func (fi staticInfo) IsDir() bool        { return fi.dir }
func (fi staticInfo) Sys() any           { return nil }

var (
	_ billy.Filesystem = (*FS)(nil)
	_ billy.Capable    = (*FS)(nil)
	_ billy.File       = (*readFile)(nil)
	_ billy.File       = (*writeFile)(nil)
)
