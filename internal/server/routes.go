package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/analog-home/analog/internal/api"
	"github.com/analog-home/analog/internal/control"
)

const maxBodyBytes = 64 << 10

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.control.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toState(snap))
}

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", control.DefaultArtifactPage)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}

	arts, err := s.control.ListArtifacts(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]api.Artifact, len(arts))
	for i := range arts {
		out[i] = toArtifact(&arts[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCountArtifacts(w http.ResponseWriter, r *http.Request) {
	n, err := s.control.CountArtifacts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	l, err := s.control.RemainingLimits(r.Context(), clientIdentity(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"votes_remaining":       l.VotesRemaining,
		"temperature_remaining": l.TemperatureRemaining,
	})
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Choice      *voteChoice `json:"choice"`
		Temperature *float64    `json:"temperature"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Choice == nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Detail: "choice required", Code: api.CodeInvalidInput})
		return
	}
	slot, err := control.ParseSlot(int(*req.Choice))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	snap, err := s.control.CastVote(r.Context(), clientIdentity(r), slot, req.Temperature)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toState(snap))
}

func (s *Server) handleTemperature(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Temperature *float64 `json:"temperature"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Temperature == nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Detail: "temperature required", Code: api.CodeInvalidInput})
		return
	}

	snap, err := s.control.SetTemperature(r.Context(), clientIdentity(r), *req.Temperature)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toState(snap))
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	_, snap, err := s.control.SubmitSeed(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toState(snap))
}

func (s *Server) handleConsumeSeeds(w http.ResponseWriter, r *http.Request) {
	var req api.ConsumeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := s.control.ConsumeSeeds(r.Context(), req.IDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.ConsumeResponse{Deleted: n})
}

func (s *Server) handleSetTrajectory(w http.ResponseWriter, r *http.Request) {
	var req api.Trajectory
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := s.control.ResetTrajectory(r.Context(), control.Trajectory{
		Labels:             [3]string{req.Label1, req.Label2, req.Label3},
		Reason:             req.Reason,
		DefaultTemperature: req.DefaultTemperature,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toState(snap))
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req api.Artifact
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := s.control.Publish(r.Context(), fromArtifact(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toState(snap))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, api.CodeInternal
	switch {
	case errors.Is(err, control.ErrValidation):
		status, code = http.StatusBadRequest, api.CodeInvalidInput
	case errors.Is(err, control.ErrRateLimited):
		status, code = http.StatusTooManyRequests, api.CodeRateLimited
	case errors.Is(err, control.ErrCapacityExceeded):
		status, code = http.StatusConflict, api.CodeCapacityExceeded
	case errors.Is(err, control.ErrConflict):
		status, code = http.StatusConflict, api.CodeConflict
	case errors.Is(err, control.ErrTransient):
		status, code = http.StatusServiceUnavailable, api.CodeUnavailable
		w.Header().Set("Retry-After", "1")
	}

	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, api.Error{Detail: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Detail: "invalid json: " + err.Error(), Code: api.CodeInvalidInput})
		return false
	}
	return true
}

func queryInt(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Detail: fmt.Sprintf("%s must be an integer", key), Code: api.CodeInvalidInput})
		return 0, false
	}
	return n, true
}

// voteChoice accepts 1 as well as "1"; the visitor UI sends strings.
type voteChoice int

func (c *voteChoice) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*c = voteChoice(n)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("choice must be 1, 2 or 3")
	}
	n, err := strconv.Atoi(str)
	if err != nil {
		return fmt.Errorf("choice must be 1, 2 or 3")
	}
	*c = voteChoice(n)
	return nil
}
