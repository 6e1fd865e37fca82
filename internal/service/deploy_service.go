package service

import (
	"context"
	"fmt"

	"github.com/andresuchdata/revdeploy/internal/journal"
	"github.com/andresuchdata/revdeploy/internal/revision"
	"github.com/andresuchdata/revdeploy/internal/storage"
	"github.com/rs/zerolog/log"
)

type DeployService struct {
	catalog   *revision.Catalog
	activator *revision.Activator
	publisher *revision.Publisher
	journal   journal.Journal
}

// Options tunes a DeployService.
type Options struct {
	// Overwrite lets Publish replace an existing revision.
	Overwrite bool
	Journal   journal.Journal
}

func NewDeployService(store storage.ObjectStore, naming revision.Naming, opts Options) *DeployService {
	j := opts.Journal
	if j == nil {
		j = journal.NewNoopJournal()
	}
	return &DeployService{
		catalog:   revision.NewCatalog(store, naming),
		activator: revision.NewActivator(store, naming),
		publisher: revision.NewPublisher(store, naming, opts.Overwrite),
		journal:   j,
	}
}

func (s *DeployService) ListRevisions(ctx context.Context) ([]revision.Record, error) {
	return s.catalog.List(ctx)
}

// Activate promotes rev. With StrategyCatalog the revision is validated
// against a freshly listed catalog instead of a direct lookup.
func (s *DeployService) Activate(ctx context.Context, rev string, strategy revision.Strategy) (*revision.Activation, error) {
	var (
		act *revision.Activation
		err error
	)

	switch strategy {
	case revision.StrategyCatalog:
		records, listErr := s.catalog.List(ctx)
		if listErr != nil {
			return nil, listErr
		}
		act, err = s.activator.ActivateKnown(ctx, rev, records)
	case revision.StrategyDirect, "":
		act, err = s.activator.Activate(ctx, rev)
	default:
		return nil, fmt.Errorf("unknown validation strategy %q", strategy)
	}
	if err != nil {
		return act, err
	}

	if err := s.journal.Record(ctx, journal.Entry{
		Revision:    act.Revision,
		Source:      act.Source,
		Destination: act.Destination,
		ActivatedAt: act.FinishedAt,
	}); err != nil {
		log.Warn().Err(err).Str("revision", rev).Msg("deploy: journal record failed")
	}

	return act, nil
}

func (s *DeployService) Publish(ctx context.Context, rev string, data []byte) (string, error) {
	return s.publisher.Publish(ctx, rev, data)
}

func (s *DeployService) PublishFile(ctx context.Context, rev, path string) (string, error) {
	return s.publisher.PublishFile(ctx, rev, path)
}

func (s *DeployService) History(ctx context.Context, limit int) ([]journal.Entry, error) {
	return s.journal.Recent(ctx, limit)
}
