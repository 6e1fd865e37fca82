// Package journal keeps a history of successful activations so operators can
// find a previously live revision to re-activate. It is never consulted to
// decide which revision is currently active.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/revdeploy/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix         = "revdeploy:activations"
	defaultMaxEntries = 100
)

// Entry records one completed activation.
type Entry struct {
	Revision    string    `json:"revision"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	ActivatedAt time.Time `json:"activated_at"`
}

type Journal interface {
	Record(ctx context.Context, entry Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

type redisJournal struct {
	client     *redis.Client
	key        string
	maxEntries int64
}

type noopJournal struct{}

// New returns a Redis-backed journal scoped to bucket and active key, or a
// no-op journal when disabled.
func New(ctx context.Context, cfg config.JournalConfig, bucket, activeKey string) (Journal, error) {
	if !cfg.Enabled {
		return &noopJournal{}, nil
	}

	client, err := newRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisJournal(client, bucket, activeKey, cfg.MaxEntries), nil
}

// NewRedisJournal wraps an existing client. maxEntries <= 0 uses the default.
func NewRedisJournal(client *redis.Client, bucket, activeKey string, maxEntries int) Journal {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &redisJournal{
		client:     client,
		key:        fmt.Sprintf("%s:%s:%s", keyPrefix, bucket, activeKey),
		maxEntries: int64(maxEntries),
	}
}

func NewNoopJournal() Journal {
	return &noopJournal{}
}

func (j *redisJournal) Record(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("journal encode failed: %w", err)
	}

	pipe := j.client.TxPipeline()
	pipe.LPush(ctx, j.key, payload)
	pipe.LTrim(ctx, j.key, 0, j.maxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("journal record failed: %w", err)
	}
	return nil
}

func (j *redisJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || int64(limit) > j.maxEntries {
		limit = int(j.maxEntries)
	}

	raw, err := j.client.LRange(ctx, j.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("journal read failed: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("journal decode failed: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (j *noopJournal) Record(context.Context, Entry) error { return nil }

func (j *noopJournal) Recent(context.Context, int) ([]Entry, error) { return []Entry{}, nil }
