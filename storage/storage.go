// Package storage is the object store that exported notes are written to.
// Backends register themselves by name; import storage/local or storage/s3
// for side effects to make them available to New.
package storage

import (
	"context"
	stderrors "errors"
	"io"
	"time"
)

// ErrNotFound is returned by Download for a missing object.
var ErrNotFound = stderrors.New("storage: object not found")

// FileInfo describes a stored object.
type FileInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// Storage is implemented by every backend.
type Storage interface {
	// Upload writes r to path, replacing any existing object.
	Upload(ctx context.Context, path string, r io.Reader) error
	// Download opens the object at path. The caller closes the reader.
	Download(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete removes the object. A missing object is not an error.
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	// URL is where a client can fetch the object.
	URL(ctx context.Context, path string) (string, error)
	List(ctx context.Context, prefix string) ([]FileInfo, error)
}
