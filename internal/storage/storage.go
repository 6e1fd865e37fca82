package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotFound is returned by HeadObject when the key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectInfo represents metadata for a remote object.
type ObjectInfo struct {
	Key          string
	LastModified time.Time
	// ETag is the content fingerprint used to compare objects. Drivers strip
	// surrounding quotes so values compare across backends.
	ETag string
	Size int64
}

// ObjectStore captures the object-store operations revision management needs.
type ObjectStore interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	HeadObject(ctx context.Context, key string) (ObjectInfo, error)
	CopyObject(ctx context.Context, sourceKey, destinationKey string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// StoreError wraps a transport, auth or service failure reported by a driver.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s failed: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op, key string, err error) error {
	return &StoreError{Op: op, Key: key, Err: err}
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}

// NormalizeETag trims whitespace and the quotes S3-style services put around ETags.
func NormalizeETag(etag string) string {
	return strings.Trim(strings.TrimSpace(etag), `"`)
}

func contentTypeFor(data []byte) string {
	return mimetype.Detect(data).String()
}
