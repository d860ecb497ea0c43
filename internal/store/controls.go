package store

import (
	"database/sql"
	"fmt"
	"time"
)

// controlsID is the fixed primary key of the singleton controls row.
const controlsID = 1

// Controls is the singleton control state. Votes and VoteLabels are
// indexed by slot-1.
type Controls struct {
	Temperature        float64
	TempSetAt          *time.Time // nil: no explicit setting, no decay
	DefaultTemperature float64
	Votes              [3]int
	VoteLabels         [3]string
	TrajectoryReason   string
	UpdatedAt          time.Time
}

// EnsureControls creates the controls row from defaults if it does not
// exist yet. An existing row is left untouched. Reports whether the row
// was created.
func (t *Tx) EnsureControls(defaults Controls) (bool, error) {
	c := defaults
	result, err := t.exec(`
		INSERT INTO controls (id, temperature, temp_set_at, default_temperature,
			vote_1, vote_2, vote_3, vote_label_1, vote_label_2, vote_label_3,
			trajectory_reason, updated_at)
		VALUES (?, ?, NULL, ?, 0, 0, 0, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, controlsID, c.Temperature, c.DefaultTemperature,
		c.VoteLabels[0], c.VoteLabels[1], c.VoteLabels[2],
		c.TrajectoryReason, toMillis(c.UpdatedAt))
	if err != nil {
		return false, fmt.Errorf("ensure controls: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// LoadControls reads the singleton controls row.
func (t *Tx) LoadControls() (*Controls, error) {
	var c Controls
	var setAt sql.NullInt64
	var updatedAt int64
	err := t.queryRow(`
		SELECT temperature, temp_set_at, default_temperature,
			vote_1, vote_2, vote_3, vote_label_1, vote_label_2, vote_label_3,
			trajectory_reason, updated_at
		FROM controls WHERE id = ?
	`, controlsID).Scan(&c.Temperature, &setAt, &c.DefaultTemperature,
		&c.Votes[0], &c.Votes[1], &c.Votes[2],
		&c.VoteLabels[0], &c.VoteLabels[1], &c.VoteLabels[2],
		&c.TrajectoryReason, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("load controls: not initialized")
	}
	if err != nil {
		return nil, fmt.Errorf("load controls: %w", err)
	}
	if setAt.Valid {
		ts := fromMillis(setAt.Int64)
		c.TempSetAt = &ts
	}
	c.UpdatedAt = fromMillis(updatedAt)
	return &c, nil
}

// SaveControls overwrites the singleton controls row with c.
func (t *Tx) SaveControls(c *Controls) error {
	var setAt sql.NullInt64
	if c.TempSetAt != nil {
		setAt = sql.NullInt64{Int64: toMillis(*c.TempSetAt), Valid: true}
	}
	result, err := t.exec(`
		UPDATE controls SET temperature = ?, temp_set_at = ?, default_temperature = ?,
			vote_1 = ?, vote_2 = ?, vote_3 = ?,
			vote_label_1 = ?, vote_label_2 = ?, vote_label_3 = ?,
			trajectory_reason = ?, updated_at = ?
		WHERE id = ?
	`, c.Temperature, setAt, c.DefaultTemperature,
		c.Votes[0], c.Votes[1], c.Votes[2],
		c.VoteLabels[0], c.VoteLabels[1], c.VoteLabels[2],
		c.TrajectoryReason, toMillis(c.UpdatedAt), controlsID)
	if err != nil {
		return fmt.Errorf("save controls: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("save controls: not initialized")
	}
	return nil
}
