package revision

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/andresuchdata/revdeploy/internal/storage"
	"github.com/andresuchdata/revdeploy/pkg/logger"
	"github.com/rs/zerolog"
)

// Publisher uploads prepared artifacts as new candidate revisions.
type Publisher struct {
	store     storage.ObjectStore
	naming    Naming
	overwrite bool
	log       zerolog.Logger
}

// NewPublisher creates a Publisher. Unless overwrite is set, publishing a
// revision whose key already exists fails with ErrRevisionExists.
func NewPublisher(store storage.ObjectStore, naming Naming, overwrite bool) *Publisher {
	return &Publisher{store: store, naming: naming, overwrite: overwrite, log: logger.Log}
}

// Publish uploads data as revision and returns the storage key written.
func (p *Publisher) Publish(ctx context.Context, revision string, data []byte) (string, error) {
	if revision == "" {
		return "", fmt.Errorf("revision key must be provided")
	}
	key := p.naming.StorageKey(revision)
	if key == p.naming.ActiveKey {
		return "", fmt.Errorf("revision %q collides with active key %s", revision, key)
	}

	if !p.overwrite {
		_, err := p.store.HeadObject(ctx, key)
		switch {
		case err == nil:
			return "", fmt.Errorf("%w: %s", ErrRevisionExists, key)
		case !errors.Is(err, storage.ErrNotFound):
			return "", fmt.Errorf("failed to check revision %s: %w", revision, err)
		}
	}

	if err := p.store.UploadObject(ctx, key, data); err != nil {
		return "", fmt.Errorf("failed to upload revision %s: %w", revision, err)
	}

	p.log.Info().Str("revision", revision).Int("bytes", len(data)).Msgf("uploaded %s", key)
	return key, nil
}

// PublishFile reads the artifact at path and publishes it as revision.
func (p *Publisher) PublishFile(ctx context.Context, revision, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed reading artifact %s: %w", path, err)
	}
	return p.Publish(ctx, revision, data)
}
