package control

import (
	"errors"
	"fmt"

	"github.com/analog-home/analog/internal/store"
)

// Error kinds returned by the control surface. Callers match them with
// errors.Is; the wrapped message carries the detail.
var (
	// ErrValidation marks malformed or out-of-range input. Nothing was
	// written.
	ErrValidation = errors.New("invalid input")
	// ErrConflict marks an artifact id that is already in the log.
	ErrConflict = errors.New("conflict")
	// ErrRateLimited marks an identity that has used its quota for the
	// current cycle.
	ErrRateLimited = errors.New("rate limited")
	// ErrCapacityExceeded marks a full seed inbox.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrTransient marks a store that was busy or unreachable within the
	// request deadline. The operation was not applied and may be retried.
	ErrTransient = errors.New("store unavailable")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// classify turns store-level failures into ErrTransient where a retry
// can succeed. Domain errors pass through untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrValidation, ErrConflict, ErrRateLimited, ErrCapacityExceeded, ErrTransient} {
		if errors.Is(err, kind) {
			return err
		}
	}
	if store.IsBusy(err) {
		return fmt.Errorf("%w: %s: %v", ErrTransient, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
