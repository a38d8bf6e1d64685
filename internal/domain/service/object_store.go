package service

import "context"

// ObjectStore is the file storage collaborator.
type ObjectStore interface {
	// Put stores data under path, replacing any previous object.
	Put(ctx context.Context, path string, data []byte, contentType string) error

	// DownloadURL returns a durable reference clients can fetch path from.
	DownloadURL(ctx context.Context, path string) (string, error)

	// Delete removes the object at path. A missing object is not an error.
	Delete(ctx context.Context, path string) error

	// Close releases the underlying bucket.
	Close() error
}
