package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/analog-home/analog/internal/store"
)

// Page bounds for ListArtifacts.
const (
	DefaultArtifactPage = 5
	MaxArtifactPage     = 50
)

const defaultArtifactType = "post"

// Publish appends an artifact from the agent. The id is chosen by the
// caller; a taken id is ErrConflict and the existing artifact stays as
// it was. CreatedAt is stamped here.
func (s *Surface) Publish(ctx context.Context, a store.Artifact) (*Snapshot, error) {
	if a.ID <= 0 {
		return nil, invalid("artifact id must be positive, got %d", a.ID)
	}
	if a.Temperature != nil {
		if err := s.checkTemperature(*a.Temperature); err != nil {
			return nil, err
		}
	}
	if a.ArtifactType == "" {
		a.ArtifactType = defaultArtifactType
	}
	a.CreatedAt = s.clock.Now()

	var snap *Snapshot
	err := s.atomic(ctx, "publish artifact", func(tx *store.Tx) error {
		if err := tx.AppendArtifact(&a); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return fmt.Errorf("%w: artifact %d already published", ErrConflict, a.ID)
			}
			return err
		}
		var err error
		snap, err = s.snapshot(tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("artifact published", "artifact_id", a.ID, "title", a.Title)
	return snap, nil
}

// ListArtifacts pages through the log newest first. limit must be in
// [1, MaxArtifactPage] and offset non-negative.
func (s *Surface) ListArtifacts(ctx context.Context, limit, offset int) ([]store.Artifact, error) {
	if limit < 1 || limit > MaxArtifactPage {
		return nil, invalid("limit must be between 1 and %d, got %d", MaxArtifactPage, limit)
	}
	if offset < 0 {
		return nil, invalid("offset must not be negative, got %d", offset)
	}

	var out []store.Artifact
	err := s.atomic(ctx, "list artifacts", func(tx *store.Tx) error {
		var err error
		out, err = tx.ListArtifacts(limit, offset)
		return err
	})
	return out, err
}

// CountArtifacts returns the size of the log.
func (s *Surface) CountArtifacts(ctx context.Context) (int, error) {
	var n int
	err := s.atomic(ctx, "count artifacts", func(tx *store.Tx) error {
		var err error
		n, err = tx.CountArtifacts()
		return err
	})
	return n, err
}
