package store

import (
	"database/sql"
	"fmt"
)

// Action names a rate-limited visitor action.
type Action string

const (
	ActionVote        Action = "vote"
	ActionTemperature Action = "temperature"
)

// CheckAndIncrement records one use of action by identity if fewer than
// quota uses exist in the current cycle, creating the counter at 1 on
// first use. It is a single guarded upsert, so two concurrent callers
// cannot both take the last remaining slot. Reports whether the action
// was permitted.
func (t *Tx) CheckAndIncrement(identity string, action Action, quota int) (bool, error) {
	if quota < 1 {
		return false, nil
	}
	result, err := t.exec(`
		INSERT INTO rate_limits (identity, action, count) VALUES (?, ?, 1)
		ON CONFLICT (identity, action) DO UPDATE SET count = rate_limits.count + 1
		WHERE rate_limits.count < ?
	`, identity, string(action), quota)
	if err != nil {
		return false, fmt.Errorf("check rate limit: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rate limit: %w", err)
	}
	return n > 0, nil
}

// RateLimitCount returns how many times identity has performed action in
// the current cycle.
func (t *Tx) RateLimitCount(identity string, action Action) (int, error) {
	var count int
	err := t.queryRow(`
		SELECT count FROM rate_limits WHERE identity = ? AND action = ?
	`, identity, string(action)).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get rate limit: %w", err)
	}
	return count, nil
}

// WipeRateLimits deletes every counter for every identity, starting a
// new cycle. Returns the number of entries removed.
func (t *Tx) WipeRateLimits() (int64, error) {
	result, err := t.exec(`DELETE FROM rate_limits`)
	if err != nil {
		return 0, fmt.Errorf("wipe rate limits: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
