package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrDuplicate is returned by AppendArtifact when the id is taken.
var ErrDuplicate = errors.New("artifact id already exists")

// Artifact is one published output of the agent.
type Artifact struct {
	ID             int64
	CreatedAt      time.Time
	Brain          string
	Cycle          *int64
	ArtifactType   string
	Title          string
	BodyMarkdown   string
	Monologue      string
	Channel        string
	SourcePlatform string
	SourceID       string
	SourceParentID string
	SourceURL      string
	SearchQueries  string
	Temperature    *float64
}

const artifactColumns = `id, created_at, brain, cycle, artifact_type, title, body_markdown,
	monologue_public, channel, source_platform, source_id, source_parent_id,
	source_url, search_queries, temperature`

// AppendArtifact inserts a. An existing row with the same id is never
// overwritten: the insert is skipped and ErrDuplicate returned.
func (t *Tx) AppendArtifact(a *Artifact) error {
	result, err := t.exec(`
		INSERT INTO artifacts (`+artifactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, a.ID, toMillis(a.CreatedAt), a.Brain, a.Cycle, a.ArtifactType, a.Title, a.BodyMarkdown,
		a.Monologue, a.Channel, a.SourcePlatform, a.SourceID, a.SourceParentID,
		a.SourceURL, a.SearchQueries, a.Temperature)
	if err != nil {
		return fmt.Errorf("append artifact: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("append artifact %d: %w", a.ID, ErrDuplicate)
	}
	return nil
}

// LatestArtifact returns the most recently appended artifact, or nil if
// the log is empty.
func (t *Tx) LatestArtifact() (*Artifact, error) {
	rows, err := t.ListArtifacts(1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ListArtifacts returns up to limit artifacts starting at offset,
// newest first by append order.
func (t *Tx) ListArtifacts(limit, offset int) ([]Artifact, error) {
	rows, err := t.query(`
		SELECT `+artifactColumns+`
		FROM artifacts ORDER BY seq DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []Artifact{}
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, *a)
	}
	return artifacts, rows.Err()
}

// CountArtifacts returns the total number of artifacts.
func (t *Tx) CountArtifacts() (int, error) {
	var count int
	if err := t.queryRow(`SELECT COUNT(*) FROM artifacts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count artifacts: %w", err)
	}
	return count, nil
}

func scanArtifact(rows *sql.Rows) (*Artifact, error) {
	var a Artifact
	var createdAt int64
	var cycle sql.NullInt64
	var temp sql.NullFloat64
	err := rows.Scan(&a.ID, &createdAt, &a.Brain, &cycle, &a.ArtifactType, &a.Title, &a.BodyMarkdown,
		&a.Monologue, &a.Channel, &a.SourcePlatform, &a.SourceID, &a.SourceParentID,
		&a.SourceURL, &a.SearchQueries, &temp)
	if err != nil {
		return nil, fmt.Errorf("scan artifact: %w", err)
	}
	a.CreatedAt = fromMillis(createdAt)
	if cycle.Valid {
		a.Cycle = &cycle.Int64
	}
	if temp.Valid {
		a.Temperature = &temp.Float64
	}
	return &a, nil
}
