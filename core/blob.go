package core

import (
	"context"
	"io"
)

// ErrBlobNotFound is returned by a BlobStore when no object is stored under a key.
var ErrBlobNotFound = NewNotFoundError("File")

// BlobStore is any service that can store binary objects (eg: user avatars) under a key.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	// Get returns the object content and its content type. The caller must close the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}
