package port

import (
	"context"
	"io"
)

// ObjectStoragePort stores listing images and serves them by public URL.
type ObjectStoragePort interface {
	Upload(ctx context.Context, path string, body io.Reader, size int64, contentType string) (publicURL string, err error)
	Remove(ctx context.Context, path string) error
	// ObjectPath maps a public URL produced by Upload back to its storage path.
	ObjectPath(publicURL string) (string, bool)
}
