package control

import (
	"context"
	"fmt"
	"math"

	"github.com/analog-home/analog/internal/store"
)

// SetTemperature applies a visitor's direct temperature adjustment. The
// request is first pulled to within TemperatureNudge of the current
// effective temperature, then into the absolute range, in that order.
// Each identity gets TemperatureQuota adjustments per cycle.
func (s *Surface) SetTemperature(ctx context.Context, identity string, value float64) (*Snapshot, error) {
	if err := s.checkTemperature(value); err != nil {
		return nil, err
	}

	var snap *Snapshot
	var applied, from float64
	err := s.atomic(ctx, "set temperature", func(tx *store.Tx) error {
		ok, err := tx.CheckAndIncrement(identity, store.ActionTemperature, s.cfg.TemperatureQuota)
		if err != nil {
			return err
		}
		if !ok {
			s.logger.Debug("temperature adjustment rejected", "identity", identity)
			return fmt.Errorf("%w: temperature already adjusted this trajectory", ErrRateLimited)
		}

		c, err := tx.LoadControls()
		if err != nil {
			return err
		}
		from = s.effective(c)
		applied = s.nudge(from, value)

		now := s.clock.Now()
		c.Temperature = applied
		c.TempSetAt = &now
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

	s.logger.Info("temperature adjusted",
		"identity", identity,
		"requested", value,
		"from", from,
		"applied", applied)
	return snap, nil
}

// nudge bounds requested to [current-nudge, current+nudge], then to the
// configured absolute range.
func (s *Surface) nudge(current, requested float64) float64 {
	v := clamp(requested, current-s.cfg.TemperatureNudge, current+s.cfg.TemperatureNudge)
	return round4(clamp(v, s.cfg.MinTemperature, s.cfg.MaxTemperature))
}

func (s *Surface) checkTemperature(v float64) error {
	if math.IsNaN(v) || v < s.cfg.MinTemperature || v > s.cfg.MaxTemperature {
		return invalid("temperature must be between %.1f and %.1f, got %v", s.cfg.MinTemperature, s.cfg.MaxTemperature, v)
	}
	return nil
}
