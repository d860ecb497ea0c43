package control

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/analog-home/analog/internal/store"
)

// Slot is a validated vote choice, 1 through 3.
type Slot int

// ParseSlot validates n as a vote slot.
func ParseSlot(n int) (Slot, error) {
	if n < 1 || n > 3 {
		return 0, invalid("choice must be 1, 2 or 3, got %d", n)
	}
	return Slot(n), nil
}

func (s Slot) index() int { return int(s) - 1 }

// Trajectory is the agent's choice of what visitors vote on next.
type Trajectory struct {
	Labels             [3]string
	Reason             string
	DefaultTemperature *float64 // nil keeps the current default
}

// CastVote counts one vote from identity for slot. A non-nil temperature
// also becomes the new stored temperature and restarts its decay; both
// changes land in one write. The vote quota is per identity per cycle.
func (s *Surface) CastVote(ctx context.Context, identity string, slot Slot, temperature *float64) (*Snapshot, error) {
	if slot < 1 || slot > 3 {
		return nil, invalid("choice must be 1, 2 or 3, got %d", int(slot))
	}
	if temperature != nil {
		if err := s.checkTemperature(*temperature); err != nil {
			return nil, err
		}
	}

	var snap *Snapshot
	err := s.atomic(ctx, "cast vote", func(tx *store.Tx) error {
		ok, err := tx.CheckAndIncrement(identity, store.ActionVote, s.cfg.VoteQuota)
		if err != nil {
			return err
		}
		if !ok {
			s.logger.Debug("vote rejected", "identity", identity, "quota", s.cfg.VoteQuota)
			return fmt.Errorf("%w: vote limit of %d reached for this trajectory", ErrRateLimited, s.cfg.VoteQuota)
		}

		c, err := tx.LoadControls()
		if err != nil {
			return err
		}
		now := s.clock.Now()
		c.Votes[slot.index()]++
		if temperature != nil {
			c.Temperature = *temperature
			c.TempSetAt = &now
		}
		c.UpdatedAt = now
		if err := tx.SaveControls(c); err != nil {
			return err
		}

		snap, err = s.snapshot(tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("vote cast", "identity", identity, "slot", int(slot), "votes", snap.Controls.Votes)
	return snap, nil
}

// ResetTrajectory starts a new cycle: all votes drop to zero, the three
// labels and the reason are replaced, the default temperature is
// replaced when given, and every rate-limit entry is wiped. The reset
// and the wipe commit together.
func (s *Surface) ResetTrajectory(ctx context.Context, t Trajectory) (*Snapshot, error) {
	var labels [3]string
	for i, l := range t.Labels {
		l = strings.TrimSpace(l)
		if l == "" {
			return nil, invalid("label %d must not be empty", i+1)
		}
		if n := utf8.RuneCountInString(l); n > s.cfg.MaxLabelLength {
			return nil, invalid("label %d is %d characters, limit is %d", i+1, n, s.cfg.MaxLabelLength)
		}
		labels[i] = l
	}
	reason := strings.TrimSpace(t.Reason)
	if n := utf8.RuneCountInString(reason); n > s.cfg.MaxReasonLength {
		return nil, invalid("reason is %d characters, limit is %d", n, s.cfg.MaxReasonLength)
	}
	if t.DefaultTemperature != nil {
		if err := s.checkTemperature(*t.DefaultTemperature); err != nil {
			return nil, err
		}
	}

	var snap *Snapshot
	var wiped int64
	err := s.atomic(ctx, "reset trajectory", func(tx *store.Tx) error {
		c, err := tx.LoadControls()
		if err != nil {
			return err
		}
		c.Votes = [3]int{}
		c.VoteLabels = labels
		c.TrajectoryReason = reason
		if t.DefaultTemperature != nil {
			c.DefaultTemperature = *t.DefaultTemperature
		}
		c.UpdatedAt = s.clock.Now()
		if err := tx.SaveControls(c); err != nil {
			return err
		}

		wiped, err = tx.WipeRateLimits()
		if err != nil {
			return err
		}

		snap, err = s.snapshot(tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("trajectory reset",
		"labels", labels,
		"default_temperature", snap.Controls.DefaultTemperature,
		"rate_limits_wiped", wiped)
	return snap, nil
}
