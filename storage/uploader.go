package storage

import (
	"context"
	"io"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader is an object store for exported schedules.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	// Delete removes an object; the archive uses it to drop superseded workbooks.
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}
