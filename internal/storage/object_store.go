package storage

import (
	"context"
	"io"
)

const (
	ModelsBucket   = "models"
	PreviewsBucket = "previews"
)

type Object struct {
	Name string
	Size int64
}

// ObjectStore persists fetched assets. PutObject must be atomic: a reader
// must never observe a partially written object under its final key.
type ObjectStore interface {
	// EnsureBucket prepares a bucket for writes; it is idempotent.
	EnsureBucket(ctx context.Context, bucket string) error

	PutObject(ctx context.Context, bucket, key string, data io.Reader) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	Exists(ctx context.Context, bucket, key string) (bool, error)
	ListObjects(ctx context.Context, bucket string) ([]Object, error)

	// ObjectURL returns the externally servable URL for an object.
	ObjectURL(bucket, key string) string

	// Location returns where the object physically lives (filesystem path or
	// s3:// URI), for record keeping.
	Location(bucket, key string) string
}
