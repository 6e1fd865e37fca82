package revision

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/revdeploy/internal/storage"
	"github.com/andresuchdata/revdeploy/pkg/logger"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Record is one candidate revision as seen at query time.
type Record struct {
	Revision  string    `json:"revision"`
	Active    bool      `json:"active"`
	Timestamp time.Time `json:"timestamp"`
	Key       string    `json:"key"`
	ETag      string    `json:"etag"`
}

// Catalog lists candidate revisions and flags the active ones.
type Catalog struct {
	store  storage.ObjectStore
	naming Naming
	log    zerolog.Logger
}

// NewCatalog creates a Catalog over store.
func NewCatalog(store storage.ObjectStore, naming Naming) *Catalog {
	return &Catalog{store: store, naming: naming, log: logger.Log}
}

// WithLogger returns a copy of c logging to log.
func (c *Catalog) WithLogger(log zerolog.Logger) *Catalog {
	cp := *c
	cp.log = log
	return &cp
}

// List reads the active object and the candidate listing concurrently and
// returns the candidates most recent first. A record is active when its
// fingerprint equals the active object's, so identical artifacts are all
// reported active. A missing active object means nothing is active.
func (c *Catalog) List(ctx context.Context) ([]Record, error) {
	var (
		current    storage.ObjectInfo
		hasCurrent bool
		objects    []storage.ObjectInfo
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info, err := c.store.HeadObject(gctx, c.naming.ActiveKey)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.log.Debug().Str("key", c.naming.ActiveKey).Msg("no active revision")
				return nil
			}
			return fmt.Errorf("failed to read active object: %w", err)
		}
		current, hasCurrent = info, true
		return nil
	})
	g.Go(func() error {
		list, err := c.store.ListObjects(gctx, c.naming.Prefix)
		if err != nil {
			return fmt.Errorf("failed to list revisions: %w", err)
		}
		objects = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(objects))
	for _, object := range objects {
		rev, ok := c.naming.RevisionKey(object.Key)
		if !ok {
			c.log.Debug().Str("key", object.Key).Msg("skipping object outside revision naming")
			continue
		}
		records = append(records, Record{
			Revision:  rev,
			Active:    hasCurrent && current.ETag != "" && object.ETag == current.ETag,
			Timestamp: object.LastModified,
			Key:       object.Key,
			ETag:      object.ETag,
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	return records, nil
}

// Find returns the record for revision.
func Find(records []Record, revision string) (Record, bool) {
	for _, r := range records {
		if r.Revision == revision {
			return r, true
		}
	}
	return Record{}, false
}

// Active returns the records flagged active.
func Active(records []Record) []Record {
	out := make([]Record, 0, 1)
	for _, r := range records {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}
