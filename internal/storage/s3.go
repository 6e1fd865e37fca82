package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store implements ObjectStore using the AWS SDK v2.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store creates an S3-backed store. Static credentials in cfg take
// precedence over the default AWS credential chain.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket must be provided")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(defaultRegion(cfg.Region)),
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// ListObjects pages through ListObjectsV2 for prefix.
func (s *S3Store) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	results := make([]ObjectInfo, 0)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storeErr("list", prefix, err)
		}
		for _, object := range page.Contents {
			results = append(results, ObjectInfo{
				Key:          aws.ToString(object.Key),
				LastModified: aws.ToTime(object.LastModified),
				ETag:         NormalizeETag(aws.ToString(object.ETag)),
				Size:         aws.ToInt64(object.Size),
			})
		}
	}
	return results, nil
}

// HeadObject fetches object metadata, mapping a 404 to ErrNotFound.
func (s *S3Store) HeadObject(ctx context.Context, key string) (ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		var nsk *types.NoSuchKey
		if errors.As(err, &nf) || errors.As(err, &nsk) {
			return ObjectInfo{}, notFound(key)
		}
		return ObjectInfo{}, storeErr("head", key, err)
	}
	return ObjectInfo{
		Key:          key,
		LastModified: aws.ToTime(out.LastModified),
		ETag:         NormalizeETag(aws.ToString(out.ETag)),
		Size:         aws.ToInt64(out.ContentLength),
	}, nil
}

// CopyObject issues a single server-side CopyObject within the bucket.
func (s *S3Store) CopyObject(ctx context.Context, sourceKey, destinationKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(url.PathEscape(s.bucket + "/" + sourceKey)),
		Key:        aws.String(destinationKey),
	})
	if err != nil {
		return storeErr("copy", sourceKey, err)
	}
	return nil
}

// UploadObject puts data at key.
func (s *S3Store) UploadObject(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeFor(data)),
	})
	if err != nil {
		return storeErr("upload", key, err)
	}
	return nil
}

var _ ObjectStore = (*S3Store)(nil)
