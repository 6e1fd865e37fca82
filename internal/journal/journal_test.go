package journal

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/andresuchdata/revdeploy/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T, maxEntries int) (Journal, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisJournal(client, "deploys", "live.zip", maxEntries), srv
}

func TestRedisJournal_RecordAndRecent(t *testing.T) {
	ctx := context.Background()
	j, srv := newTestJournal(t, 10)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, rev := range []string{"abc123", "def456"} {
		require.NoError(t, j.Record(ctx, Entry{
			Revision:    rev,
			Source:      "live-" + rev + ".zip",
			Destination: "live.zip",
			ActivatedAt: at.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := j.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "def456", entries[0].Revision)
	assert.Equal(t, "abc123", entries[1].Revision)
	assert.True(t, entries[1].ActivatedAt.Equal(at))

	assert.True(t, srv.Exists("revdeploy:activations:deploys:live.zip"))
}

func TestRedisJournal_TrimsToMaxEntries(t *testing.T) {
	ctx := context.Background()
	j, _ := newTestJournal(t, 3)

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(ctx, Entry{Revision: fmt.Sprintf("rev%d", i)}))
	}

	entries, err := j.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "rev4", entries[0].Revision)
	assert.Equal(t, "rev2", entries[2].Revision)
}

func TestRedisJournal_EmptyHistory(t *testing.T) {
	j, _ := newTestJournal(t, 0)
	entries, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNew_DisabledIsNoop(t *testing.T) {
	j, err := New(context.Background(), config.JournalConfig{}, "deploys", "live.zip")
	require.NoError(t, err)

	require.NoError(t, j.Record(context.Background(), Entry{Revision: "abc123"}))
	entries, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNew_EnabledConnects(t *testing.T) {
	srv := miniredis.RunT(t)
	j, err := New(context.Background(), config.JournalConfig{
		Enabled:  true,
		RedisURL: "redis://" + srv.Addr(),
	}, "deploys", "live.zip")
	require.NoError(t, err)
	require.NoError(t, j.Record(context.Background(), Entry{Revision: "abc123"}))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.JournalConfig{RedisPassword: "secret", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = buildRedisOptions(config.JournalConfig{RedisURL: "://bad"})
	assert.Error(t, err)
}
