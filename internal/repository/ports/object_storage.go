package ports

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectStorage interface {
	Put(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) (string, error)
	Get(ctx context.Context, bucket, objectName string) ([]byte, error)
	Delete(ctx context.Context, bucket, objectName string) error
}
