package interfaces

import (
	"context"
	"io"
)

// ObjectStorage stores uploaded deliverable files
type ObjectStorage interface {
	// Put writes data under path and returns the URL clients download it from
	Put(ctx context.Context, path string, data io.Reader, contentType string) (string, error)
	// Delete removes the object at path. A missing object is not an error.
	Delete(ctx context.Context, path string) error
}
