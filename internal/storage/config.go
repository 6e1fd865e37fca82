package storage

import (
	"context"
	"fmt"
	"strings"
)

// Driver names a storage backend implementation.
type Driver string

const (
	DriverMinio Driver = "minio"
	DriverS3    Driver = "s3"
	DriverGCS   Driver = "gcs"
	DriverLocal Driver = "local"
)

// Config carries everything a driver needs to reach one bucket. It is passed
// explicitly to the constructors; drivers never read or mutate process
// environment for credentials.
type Config struct {
	Driver          Driver
	Bucket          string
	Region          string
	Endpoint        string
	UseSSL          bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// CredentialsFile is a service account JSON file for the gcs driver.
	CredentialsFile string
	// LocalRoot is the directory backing the local driver.
	LocalRoot string
}

// New builds the ObjectStore selected by cfg.Driver.
func New(ctx context.Context, cfg Config) (ObjectStore, error) {
	driver := Driver(strings.ToLower(strings.TrimSpace(string(cfg.Driver))))
	if driver == "" {
		driver = DriverMinio
	}

	switch driver {
	case DriverMinio:
		return NewMinioStore(cfg)
	case DriverS3:
		return NewS3Store(ctx, cfg)
	case DriverGCS:
		return NewGCSStore(ctx, cfg)
	case DriverLocal:
		return NewLocalStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

func defaultRegion(region string) string {
	region = strings.TrimSpace(region)
	if region == "" {
		return "us-east-1"
	}
	return region
}
