package storage

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
)

// Storage is an abstract addressable byte store. Paths are relative to the
// store's root; Location exposes the root for callers that must hand
// absolute paths to external tools.
type Storage interface {
	Read(path string) (io.ReadCloser, error)

	Write(path string, data io.Reader) error

	Delete(path string) error

	Exists(path string) (bool, error)

	Size(path string) (int64, error)

	// EnsureDir creates a directory, treating "already exists" as success.
	EnsureDir(path string) error

	// Move relocates a file. When the destination is occupied, an
	// incrementing integer is prepended to the basename until a free name is
	// found. Returns the path actually written.
	Move(src, dst string) (string, error)

	Usage() (UsageStats, error)

	Location() string
}

type UsageStats struct {
	TotalBytes uint64
	FreeBytes  uint64
}

// UserDir is the per-owner directory under the storage root.
func UserDir(ownerId uuid.UUID) string {
	return ownerId.String()
}

// FinalPath is the durable location for a validated resource's file:
// <owner-uuid>/<resource-uuid>.<original-name>.
func FinalPath(ownerId, resourceId uuid.UUID, name string) string {
	return filepath.Join(UserDir(ownerId), fmt.Sprintf("%v.%v", resourceId, name))
}

// UploadPath is the transient location a file occupies between upload and
// first successful validation.
func UploadPath(resourceId uuid.UUID, name string) string {
	return filepath.Join("uploads", fmt.Sprintf("%v.%v", resourceId, name))
}
