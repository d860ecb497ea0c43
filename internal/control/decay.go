package control

import (
	"math"
	"time"
)

// EffectiveTemperature decays a stored temperature linearly toward def,
// reaching it once halfLife has elapsed since setAt. A nil setAt, or a
// stored value already equal to def, returns def exactly. A setAt in the
// future counts as no time elapsed. Results are rounded to 4 decimals.
func EffectiveTemperature(stored float64, setAt *time.Time, def float64, halfLife time.Duration, now time.Time) float64 {
	if setAt == nil || stored == def {
		return def
	}
	elapsed := now.Sub(*setAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if halfLife <= 0 || elapsed >= halfLife {
		return def
	}
	t := float64(elapsed) / float64(halfLife)
	return round4(stored + (def-stored)*t)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
