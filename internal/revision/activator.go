package revision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/revdeploy/internal/storage"
	"github.com/andresuchdata/revdeploy/pkg/logger"
	"github.com/rs/zerolog"
)

// Phase is a step of a single activation.
type Phase string

const (
	PhasePending    Phase = "pending"
	PhaseValidating Phase = "validating"
	PhaseCopying    Phase = "copying"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Strategy selects how an activation confirms the revision exists.
type Strategy string

const (
	// StrategyDirect heads the candidate key in the store.
	StrategyDirect Strategy = "direct"
	// StrategyCatalog looks the revision up in an already fetched catalog.
	StrategyCatalog Strategy = "catalog"
)

// ParseStrategy parses a strategy name; empty means StrategyDirect.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyDirect:
		return StrategyDirect, nil
	case StrategyCatalog:
		return StrategyCatalog, nil
	default:
		return "", fmt.Errorf("unknown validation strategy %q", s)
	}
}

// Activation describes the outcome of one activation call.
type Activation struct {
	Revision    string    `json:"revision"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Phase       Phase     `json:"phase"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Succeeded reports whether the copy completed.
func (a *Activation) Succeeded() bool { return a.Phase == PhaseDone }

// Activator promotes a revision onto the active key.
type Activator struct {
	store  storage.ObjectStore
	naming Naming
	log    zerolog.Logger
	now    func() time.Time
}

// NewActivator creates an Activator over store.
func NewActivator(store storage.ObjectStore, naming Naming) *Activator {
	return &Activator{store: store, naming: naming, log: logger.Log, now: time.Now}
}

// WithLogger returns a copy of a logging to log.
func (a *Activator) WithLogger(log zerolog.Logger) *Activator {
	cp := *a
	cp.log = log
	return &cp
}

// Activate confirms the candidate object exists in the store and copies it
// onto the active key.
func (a *Activator) Activate(ctx context.Context, revision string) (*Activation, error) {
	return a.run(ctx, revision, func(act *Activation) error {
		if _, err := a.store.HeadObject(ctx, act.Source); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return &NotFoundError{Revision: revision, Key: act.Source}
			}
			return fmt.Errorf("failed to check revision %s: %w", revision, err)
		}
		return nil
	})
}

// ActivateKnown confirms the revision against records without a store round
// trip, then copies it onto the active key.
func (a *Activator) ActivateKnown(ctx context.Context, revision string, records []Record) (*Activation, error) {
	return a.run(ctx, revision, func(act *Activation) error {
		if _, ok := Find(records, revision); !ok {
			return &NotFoundError{Revision: revision, Key: act.Source}
		}
		return nil
	})
}

func (a *Activator) run(ctx context.Context, revision string, validate func(*Activation) error) (*Activation, error) {
	act := &Activation{
		Revision:    revision,
		Source:      a.naming.StorageKey(revision),
		Destination: a.naming.ActiveKey,
		Phase:       PhasePending,
		StartedAt:   a.now(),
	}

	a.log.Debug().Str("key", act.Source).Msg("preparing to activate")

	act.Phase = PhaseValidating
	if revision == "" {
		return a.fail(act, &NotFoundError{Revision: revision})
	}
	if err := validate(act); err != nil {
		return a.fail(act, err)
	}

	act.Phase = PhaseCopying
	if err := a.store.CopyObject(ctx, act.Source, act.Destination); err != nil {
		return a.fail(act, fmt.Errorf("failed to activate revision %s: %w", revision, err))
	}

	act.Phase = PhaseDone
	act.FinishedAt = a.now()
	a.log.Info().Str("revision", revision).Msgf("%s => %s", act.Source, act.Destination)
	return act, nil
}

func (a *Activator) fail(act *Activation, err error) (*Activation, error) {
	failedIn := act.Phase
	act.Phase = PhaseFailed
	act.FinishedAt = a.now()
	a.log.Error().Err(err).
		Str("revision", act.Revision).
		Str("phase", string(failedIn)).
		Msg("activation failed")
	return act, err
}
