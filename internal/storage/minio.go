package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements ObjectStore for S3-compatible services through minio-go.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore builds a MinioStore. Without static credentials it falls back
// to credentials from the environment or the shared AWS credentials file.
func NewMinioStore(cfg Config) (*MinioStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket must be provided")
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	secure := cfg.UseSSL
	switch {
	case endpoint == "":
		endpoint = "s3.amazonaws.com"
		secure = true
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
		secure = true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
		secure = false
	}
	endpoint = strings.TrimSuffix(endpoint, "/")

	var creds *credentials.Credentials
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
			&credentials.FileAWSCredentials{},
		})
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: secure,
		Region: defaultRegion(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// ListObjects lists every object under prefix, recursively.
func (s *MinioStore) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	results := make([]ObjectInfo, 0)
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, storeErr("list", prefix, object.Err)
		}
		results = append(results, ObjectInfo{
			Key:          object.Key,
			LastModified: object.LastModified,
			ETag:         NormalizeETag(object.ETag),
			Size:         object.Size,
		})
	}
	return results, nil
}

// HeadObject stats key, mapping a missing object to ErrNotFound.
func (s *MinioStore) HeadObject(ctx context.Context, key string) (ObjectInfo, error) {
	object, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return ObjectInfo{}, notFound(key)
		}
		return ObjectInfo{}, storeErr("head", key, err)
	}
	return ObjectInfo{
		Key:          object.Key,
		LastModified: object.LastModified,
		ETag:         NormalizeETag(object.ETag),
		Size:         object.Size,
	}, nil
}

// CopyObject performs a server-side copy within the bucket.
func (s *MinioStore) CopyObject(ctx context.Context, sourceKey, destinationKey string) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: destinationKey},
		minio.CopySrcOptions{Bucket: s.bucket, Object: sourceKey},
	)
	if err != nil {
		return storeErr("copy", sourceKey, err)
	}
	return nil
}

// UploadObject puts data at key in a single PUT, which caps artifacts at 5 GiB.
// A multipart upload would leave an "<md5>-<parts>" ETag that never matches the
// plain MD5 a server-side copy gives the active key.
func (s *MinioStore) UploadObject(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), uploadOptions(data))
	if err != nil {
		return storeErr("upload", key, err)
	}
	return nil
}

func uploadOptions(data []byte) minio.PutObjectOptions {
	return minio.PutObjectOptions{
		ContentType:      contentTypeFor(data),
		DisableMultipart: true,
	}
}

var _ ObjectStore = (*MinioStore)(nil)
