package storage

import (
	"context"
	"io"
	"time"
)

// Package storage holds the canonical byte store abstraction. Staged uploads
// are committed here by the ingestion pipeline; durability of the backend is
// the backend's own concern.

// PutOptions carries optional parameters for an upload. Size should be the
// exact byte count when known; -1 lets the backend chunk as it sees fit.
type PutOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Store is an S3-compatible object store client. All methods stream; nothing
// is buffered in memory beyond what the SDK needs.
type Store interface {
	// Put uploads an object under key from r.
	Put(ctx context.Context, key string, r io.Reader, opt PutOptions) (ObjectInfo, error)
	// Get returns the object's content stream and its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL for the object.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
