package storage

import (
	"context"
	"errors"
	"io"
)

// BlobStore is the byte store behind delivered audio. Keys are opaque
// to callers; Put returns the public URL clients download from.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

var (
	ErrInvalidKey = errors.New("invalid_blob_key")
)
