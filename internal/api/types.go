// Package api holds the JSON wire shapes shared by the HTTP server and
// the agent-side client.
package api

import "time"

// State is the body of GET /state and of every mutating visitor and
// agent route.
type State struct {
	Artifact *Artifact `json:"artifact"`
	Controls Controls  `json:"controls"`
	Seeds    []Seed    `json:"seeds"`
}

// Controls carries the effective temperature, never the stored one.
type Controls struct {
	Temperature        float64    `json:"temperature"`
	DefaultTemperature float64    `json:"default_temperature"`
	TempSetAt          *time.Time `json:"temp_set_at"`
	Vote1              int        `json:"vote_1"`
	Vote2              int        `json:"vote_2"`
	Vote3              int        `json:"vote_3"`
	VoteLabel1         string     `json:"vote_label_1"`
	VoteLabel2         string     `json:"vote_label_2"`
	VoteLabel3         string     `json:"vote_label_3"`
	TrajectoryReason   string     `json:"trajectory_reason"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type Seed struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Artifact is both the published shape and the POST /publish body.
// created_at is ignored on input.
type Artifact struct {
	ID             int64     `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Brain          string    `json:"brain"`
	Cycle          *int64    `json:"cycle"`
	ArtifactType   string    `json:"artifact_type"`
	Title          string    `json:"title"`
	BodyMarkdown   string    `json:"body_markdown"`
	Monologue      string    `json:"monologue_public"`
	Channel        string    `json:"channel"`
	SourcePlatform string    `json:"source_platform"`
	SourceID       string    `json:"source_id"`
	SourceParentID string    `json:"source_parent_id"`
	SourceURL      string    `json:"source_url"`
	SearchQueries  string    `json:"search_queries"`
	Temperature    *float64  `json:"temperature"`
}

// Trajectory is the POST /set-trajectory body.
type Trajectory struct {
	Label1             string   `json:"label_1"`
	Label2             string   `json:"label_2"`
	Label3             string   `json:"label_3"`
	Reason             string   `json:"reason"`
	DefaultTemperature *float64 `json:"default_temperature,omitempty"`
}

// ConsumeRequest is the POST /consume-seeds body.
type ConsumeRequest struct {
	IDs []int64 `json:"ids"`
}

// ConsumeResponse reports how many seeds were actually deleted.
type ConsumeResponse struct {
	Deleted int64 `json:"deleted"`
}

// Error is the body of every non-2xx response. Code is one of
// invalid_input, rate_limited, capacity_exceeded, conflict,
// unavailable, unauthorized, not_found, internal.
type Error struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// Error codes.
const (
	CodeInvalidInput     = "invalid_input"
	CodeRateLimited      = "rate_limited"
	CodeCapacityExceeded = "capacity_exceeded"
	CodeConflict         = "conflict"
	CodeUnavailable      = "unavailable"
	CodeUnauthorized     = "unauthorized"
	CodeNotFound         = "not_found"
	CodeInternal         = "internal"
)
