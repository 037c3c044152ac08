// Package blobstore abstracts access to feature documents (GeoJSON files and
// source snapshots) stored as named blobs.
//
// Backends: local file system, in-memory (tests), S3 (blobstore/s3) and
// MinIO (blobstore/minio). The cloud backends live in subpackages so their
// SDKs are only pulled in when used.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations must return an error that satisfies
// errors.Is(err, ErrNotFound). The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for reading and writing named blobs.
type Store interface {
	// Open opens a blob for reading. The caller closes the reader.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Put writes a blob, replacing any existing blob with the same name.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob may return ErrNotFound;
	// backends with idempotent deletes (S3, MinIO) return nil instead, so
	// callers must not rely on Delete to probe existence.
	Delete(ctx context.Context, name string) error

	// List returns the names of blobs with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ReadAll opens and fully reads a blob.
func ReadAll(ctx context.Context, s Store, name string) ([]byte, error) {
	rc, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
