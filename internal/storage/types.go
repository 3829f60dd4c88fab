package storage

import "time"

// NodeType distinguishes a directory inode from a file inode.
type NodeType string

const (
	TypeFile      NodeType = "file"
	TypeDirectory NodeType = "directory"
)

// VirtualEntry is a value-copied snapshot of one Node, optionally joined
// with its latest Version's content. Callers never get a live reference
// into engine state.
type VirtualEntry struct {
	ID            string     `json:"id"`
	Session       string     `json:"session"`
	Path          string     `json:"path"`
	Name          string     `json:"name"`
	ParentPath    *string    `json:"parentPath,omitempty"`
	Type          NodeType   `json:"type"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	LatestVersion *int       `json:"latestVersion,omitempty"`
	Content       []byte     `json:"-"`
	HasContent    bool       `json:"-"`
}

// IsDir reports whether the entry is a directory node.
func (e VirtualEntry) IsDir() bool { return e.Type == TypeDirectory }

// FileVersion is a value-copied snapshot of one Version row.
type FileVersion struct {
	ID        string    `json:"id"`
	NodeID    string    `json:"nodeId"`
	Version   int       `json:"version"`
	Content   []byte    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// DirectoryListing is the partitioned result of list_directory.
type DirectoryListing struct {
	Directories []VirtualEntry
	Files       []VirtualEntry
}
