package control

import (
	"context"

	"github.com/analog-home/analog/internal/store"
)

// Limits is what an identity has left in the current cycle.
type Limits struct {
	VotesRemaining       int
	TemperatureRemaining int
}

// RemainingLimits reports identity's unused quota without consuming any.
func (s *Surface) RemainingLimits(ctx context.Context, identity string) (*Limits, error) {
	var l Limits
	err := s.atomic(ctx, "read limits", func(tx *store.Tx) error {
		votes, err := tx.RateLimitCount(identity, store.ActionVote)
		if err != nil {
			return err
		}
		temps, err := tx.RateLimitCount(identity, store.ActionTemperature)
		if err != nil {
			return err
		}
		l.VotesRemaining = max(0, s.cfg.VoteQuota-votes)
		l.TemperatureRemaining = max(0, s.cfg.TemperatureQuota-temps)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}
