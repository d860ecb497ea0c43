// Package control is the state machine behind the installation: a
// decaying temperature, a three-way vote bound to the current
// trajectory's labels, a bounded seed inbox, the artifact log, and
// per-identity quotas that reset with every trajectory.
//
// Every exported operation runs as one store transaction. Mutations
// return the snapshot read inside the same transaction, so a caller
// always sees the state its own write produced and never a mix of
// fields from before and after a concurrent reset.
package control

import (
	"context"
	"log/slog"

	"github.com/analog-home/analog/internal/clock"
	"github.com/analog-home/analog/internal/config"
	"github.com/analog-home/analog/internal/store"
)

// Surface is the single access path to control state. It holds no
// mutable state of its own: every call re-reads the store.
type Surface struct {
	db     *store.DB
	cfg    config.ControlsConfig
	clock  clock.Clock
	logger *slog.Logger
}

// Snapshot is the state a visitor sees. Controls.Temperature holds the
// effective (decayed) temperature, not the stored one.
type Snapshot struct {
	Artifact *store.Artifact
	Controls store.Controls
	Seeds    []store.Seed
}

// New creates a Surface over db.
func New(db *store.DB, cfg config.ControlsConfig, clk clock.Clock, logger *slog.Logger) *Surface {
	if logger == nil {
		logger = slog.Default()
	}
	return &Surface{
		db:     db,
		cfg:    cfg,
		clock:  clk,
		logger: logger.With("component", "control"),
	}
}

// Init creates the control state from configured defaults if the store
// has none. Existing state is never touched.
func (s *Surface) Init(ctx context.Context) error {
	labels := s.cfg.DefaultVoteLabels
	defaults := store.Controls{
		Temperature:        s.cfg.DefaultTemperature,
		DefaultTemperature: s.cfg.DefaultTemperature,
		VoteLabels:         [3]string{labels[0], labels[1], labels[2]},
		UpdatedAt:          s.clock.Now(),
	}
	return s.atomic(ctx, "init controls", func(tx *store.Tx) error {
		created, err := tx.EnsureControls(defaults)
		if err != nil {
			return err
		}
		if created {
			s.logger.Info("control state initialized",
				"default_temperature", defaults.DefaultTemperature,
				"labels", labels)
		}
		return nil
	})
}

// Snapshot returns the current state without side effects.
func (s *Surface) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snap *Snapshot
	err := s.atomic(ctx, "read state", func(tx *store.Tx) error {
		var err error
		snap, err = s.snapshot(tx)
		return err
	})
	return snap, err
}

// Ping confirms the store answers reads.
func (s *Surface) Ping(ctx context.Context) error {
	return classify("ping", s.db.Ping(ctx))
}

func (s *Surface) atomic(ctx context.Context, op string, fn func(tx *store.Tx) error) error {
	return classify(op, s.db.WithTx(ctx, fn))
}

// snapshot assembles the visitor view from inside tx.
func (s *Surface) snapshot(tx *store.Tx) (*Snapshot, error) {
	c, err := tx.LoadControls()
	if err != nil {
		return nil, err
	}
	c.Temperature = s.effective(c)

	art, err := tx.LatestArtifact()
	if err != nil {
		return nil, err
	}
	seeds, err := tx.ListSeeds(s.cfg.SeedsReturned)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Artifact: art, Controls: *c, Seeds: seeds}, nil
}

func (s *Surface) effective(c *store.Controls) float64 {
	return EffectiveTemperature(c.Temperature, c.TempSetAt, c.DefaultTemperature, s.cfg.DecayHalfLife, s.clock.Now())
}
