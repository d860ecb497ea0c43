package store

import (
	"fmt"
	"strings"
	"time"
)

// Seed is a visitor-submitted idea waiting for the agent.
type Seed struct {
	ID        int64
	Text      string
	CreatedAt time.Time
}

// InsertSeed appends a seed and returns it with its assigned id. Ids
// come from an AUTOINCREMENT sequence: strictly increasing, never
// reused even after the newest seed is consumed. Capacity is the
// caller's concern.
func (t *Tx) InsertSeed(text string, now time.Time) (*Seed, error) {
	result, err := t.exec(`
		INSERT INTO seeds (text, created_at) VALUES (?, ?)
	`, text, toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("insert seed: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert seed: %w", err)
	}
	return &Seed{ID: id, Text: text, CreatedAt: fromMillis(toMillis(now))}, nil
}

// CountSeeds returns the number of seeds currently in the inbox.
func (t *Tx) CountSeeds() (int, error) {
	var count int
	if err := t.queryRow(`SELECT COUNT(*) FROM seeds`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count seeds: %w", err)
	}
	return count, nil
}

// ListSeeds returns up to limit seeds, oldest first.
func (t *Tx) ListSeeds(limit int) ([]Seed, error) {
	rows, err := t.query(`
		SELECT id, text, created_at FROM seeds ORDER BY id ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list seeds: %w", err)
	}
	defer rows.Close()

	seeds := []Seed{}
	for rows.Next() {
		var s Seed
		var createdAt int64
		if err := rows.Scan(&s.ID, &s.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan seed: %w", err)
		}
		s.CreatedAt = fromMillis(createdAt)
		seeds = append(seeds, s)
	}
	return seeds, rows.Err()
}

// DeleteSeeds removes the seeds with the given ids. Unknown ids are
// ignored; the return value counts rows actually deleted.
func (t *Tx) DeleteSeeds(ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	result, err := t.exec(`DELETE FROM seeds WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete seeds: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
