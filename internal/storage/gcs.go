package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore implements ObjectStore on Google Cloud Storage. Fingerprints are the
// object's MD5 so that a copy carries its source's fingerprint.
type GCSStore struct {
	client *gcs.Client
	bucket string
}

// NewGCSStore creates a GCS-backed store. It uses application default
// credentials unless cfg.CredentialsFile is set.
func NewGCSStore(ctx context.Context, cfg Config) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket must be provided")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStore{client: client, bucket: cfg.Bucket}, nil
}

// ListObjects iterates objects under prefix.
func (s *GCSStore) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	results := make([]ObjectInfo, 0)
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, storeErr("list", prefix, err)
		}
		results = append(results, gcsInfo(attrs))
	}
	return results, nil
}

// HeadObject reads object attributes, mapping ErrObjectNotExist to ErrNotFound.
func (s *GCSStore) HeadObject(ctx context.Context, key string) (ObjectInfo, error) {
	attrs, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return ObjectInfo{}, notFound(key)
		}
		return ObjectInfo{}, storeErr("head", key, err)
	}
	return gcsInfo(attrs), nil
}

// CopyObject rewrites sourceKey over destinationKey server side.
func (s *GCSStore) CopyObject(ctx context.Context, sourceKey, destinationKey string) error {
	bucket := s.client.Bucket(s.bucket)
	if _, err := bucket.Object(destinationKey).CopierFrom(bucket.Object(sourceKey)).Run(ctx); err != nil {
		return storeErr("copy", sourceKey, err)
	}
	return nil
}

// UploadObject writes data at key.
func (s *GCSStore) UploadObject(ctx context.Context, key string, data []byte) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentTypeFor(data)

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return storeErr("upload", key, err)
	}
	if err := w.Close(); err != nil {
		return storeErr("upload", key, err)
	}
	return nil
}

func gcsInfo(attrs *gcs.ObjectAttrs) ObjectInfo {
	// Composite objects have no MD5.
	etag := NormalizeETag(attrs.Etag)
	if len(attrs.MD5) > 0 {
		etag = hex.EncodeToString(attrs.MD5)
	}
	return ObjectInfo{
		Key:          attrs.Name,
		LastModified: attrs.Updated,
		ETag:         etag,
		Size:         attrs.Size,
	}
}

var _ ObjectStore = (*GCSStore)(nil)
