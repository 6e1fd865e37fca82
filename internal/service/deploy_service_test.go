package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/revdeploy/internal/journal"
	"github.com/andresuchdata/revdeploy/internal/revision"
	"github.com/andresuchdata/revdeploy/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memJournal struct {
	entries []journal.Entry
	err     error
}

func (m *memJournal) Record(_ context.Context, e journal.Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append([]journal.Entry{e}, m.entries...)
	return nil
}

func (m *memJournal) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	if limit > 0 && limit < len(m.entries) {
		return m.entries[:limit], nil
	}
	return m.entries, nil
}

func newTestService(t *testing.T, j journal.Journal) (*DeployService, *storagetest.Store) {
	t.Helper()
	store := storagetest.New()
	t1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store.Put("app-abc123.zip", "X", t1)
	store.Put("app-def456.zip", "Y", t1.Add(time.Hour))
	store.Put("live.zip", "Y", t1.Add(time.Hour))

	naming, err := revision.NewNaming("app-", ".zip", "live.zip")
	require.NoError(t, err)
	return NewDeployService(store, naming, Options{Journal: j}), store
}

func TestActivate_DirectRecordsJournal(t *testing.T) {
	j := &memJournal{}
	svc, store := newTestService(t, j)

	act, err := svc.Activate(context.Background(), "abc123", revision.StrategyDirect)
	require.NoError(t, err)
	assert.True(t, act.Succeeded())
	assert.Equal(t, 1, store.Calls().Copy)

	history, err := svc.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "abc123", history[0].Revision)
	assert.Equal(t, "app-abc123.zip", history[0].Source)
}

func TestActivate_CatalogStrategyListsFirst(t *testing.T) {
	svc, store := newTestService(t, nil)

	_, err := svc.Activate(context.Background(), "abc123", revision.StrategyCatalog)
	require.NoError(t, err)

	calls := store.Calls()
	assert.Equal(t, 1, calls.List)
	assert.Equal(t, 1, calls.Head) // active key only
	assert.Equal(t, 1, calls.Copy)
}

func TestActivate_NotFoundSkipsJournal(t *testing.T) {
	j := &memJournal{}
	svc, store := newTestService(t, j)

	for _, strategy := range []revision.Strategy{revision.StrategyDirect, revision.StrategyCatalog} {
		_, err := svc.Activate(context.Background(), "missing", strategy)
		assert.ErrorIs(t, err, revision.ErrRevisionNotFound, string(strategy))
	}
	assert.Empty(t, j.entries)
	assert.Equal(t, 0, store.Calls().Copy)
}

func TestActivate_JournalFailureDoesNotFailActivation(t *testing.T) {
	svc, _ := newTestService(t, &memJournal{err: errors.New("redis down")})

	act, err := svc.Activate(context.Background(), "abc123", revision.StrategyDirect)
	require.NoError(t, err)
	assert.True(t, act.Succeeded())
}

func TestActivate_UnknownStrategy(t *testing.T) {
	svc, store := newTestService(t, nil)

	_, err := svc.Activate(context.Background(), "abc123", revision.Strategy("guess"))
	assert.Error(t, err)
	assert.Equal(t, 0, store.Calls().Copy)
}

func TestListAndPublish(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	key, err := svc.Publish(ctx, "ghi789", []byte("new build"))
	require.NoError(t, err)
	assert.Equal(t, "app-ghi789.zip", key)

	records, err := svc.ListRevisions(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "ghi789", records[0].Revision)
	assert.False(t, records[0].Active)

	_, err = svc.Publish(ctx, "ghi789", []byte("again"))
	assert.ErrorIs(t, err, revision.ErrRevisionExists)
}
