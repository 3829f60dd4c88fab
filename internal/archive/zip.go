// Package archive builds the ZIP snapshot export_session_zip streams to
// callers. No example repo in the retrieval pack imports a third-party
// ZIP codec, so this package uses the standard library's archive/zip
// directly (see DESIGN.md).
package archive

import (
	"archive/zip"
	"bytes"
	"strings"

	"github.com/simbo1905/threadbox-mcp/internal/storage"
)

// WriteSessionZip encodes every file in files as one ZIP archive and
// returns the encoded bytes. Members are written in the order given;
// callers that want deterministic output should pass files already
// sorted by path (storage.Engine.AllLatestFiles does).
func WriteSessionZip(files []storage.VirtualEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, f := range files {
		name := strings.TrimPrefix(f.Path, "/")
		if name == "" {
			continue
		}
		header := &zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: f.UpdatedAt,
		}
		entry, err := w.CreateHeader(header)
		if err != nil {
			return nil, err
		}
		if _, err := entry.Write(f.Content); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
