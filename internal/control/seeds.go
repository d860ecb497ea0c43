package control

import (
	"context"
	"fmt"
	"strings"

	"github.com/analog-home/analog/internal/store"
)

// SubmitSeed adds a visitor idea to the inbox. Text is trimmed and cut
// to MaxSeedLength characters; empty text is invalid, and a full inbox
// rejects the seed until the agent consumes some.
func (s *Surface) SubmitSeed(ctx context.Context, text string) (*store.Seed, *Snapshot, error) {
	text = truncateRunes(strings.TrimSpace(text), s.cfg.MaxSeedLength)
	// Truncation can expose trailing whitespace.
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, invalid("seed text must not be empty")
	}

	var seed *store.Seed
	var snap *Snapshot
	err := s.atomic(ctx, "submit seed", func(tx *store.Tx) error {
		n, err := tx.CountSeeds()
		if err != nil {
			return err
		}
		if n >= s.cfg.SeedCapacity {
			s.logger.Debug("seed rejected, inbox full", "capacity", s.cfg.SeedCapacity)
			return fmt.Errorf("%w: seedbank is full (%d/%d), wait for the agent to catch up", ErrCapacityExceeded, n, s.cfg.SeedCapacity)
		}

		seed, err = tx.InsertSeed(text, s.clock.Now())
		if err != nil {
			return err
		}
		snap, err = s.snapshot(tx)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("seed submitted", "seed_id", seed.ID)
	return seed, snap, nil
}

// ConsumeSeeds removes the given seeds from the inbox and returns how
// many were actually removed. Unknown ids are ignored.
func (s *Surface) ConsumeSeeds(ctx context.Context, ids []int64) (int64, error) {
	var removed int64
	err := s.atomic(ctx, "consume seeds", func(tx *store.Tx) error {
		var err error
		removed, err = tx.DeleteSeeds(ids)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("seeds consumed", "requested", len(ids), "removed", removed)
	return removed, nil
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
