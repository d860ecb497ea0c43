// Package client talks to a running analog server on behalf of the
// external agent and the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/analog-home/analog/internal/api"
)

const (
	defaultServerURL = "http://127.0.0.1:8000"
	httpTimeout      = 10 * time.Second
	agentTokenHeader = "X-Agent-Token"
)

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Status int
	Body   api.Error
}

func (e *StatusError) Error() string {
	if e.Body.Detail == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d (%s): %s", e.Status, e.Body.Code, e.Body.Detail)
}

// IsCode reports whether err is a StatusError carrying code.
func IsCode(err error, code string) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Body.Code == code
}

// Client talks to the analog server.
type Client struct {
	http       *http.Client
	serverURL  string
	agentToken string
}

// New creates a client for serverURL. An empty serverURL respects the
// ANALOG_URL env var, falling back to http://127.0.0.1:8000. The agent
// token is read from ANALOG_AGENT_TOKEN.
func New(serverURL string) *Client {
	if serverURL == "" {
		serverURL = os.Getenv("ANALOG_URL")
	}
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	return &Client{
		http:       &http.Client{Timeout: httpTimeout},
		serverURL:  serverURL,
		agentToken: os.Getenv("ANALOG_AGENT_TOKEN"),
	}
}

// WithAgentToken overrides the token sent on agent routes.
func (c *Client) WithAgentToken(token string) *Client {
	c.agentToken = token
	return c
}

// State fetches the current snapshot.
func (c *Client) State(ctx context.Context) (*api.State, error) {
	var st api.State
	if err := c.do(ctx, http.MethodGet, "/state", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Artifacts fetches one page of the artifact log, newest first.
func (c *Client) Artifacts(ctx context.Context, limit, offset int) ([]api.Artifact, error) {
	path := "/artifacts?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
	var out []api.Artifact
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitSeed posts a seed idea.
func (c *Client) SubmitSeed(ctx context.Context, text string) (*api.State, error) {
	var st api.State
	if err := c.do(ctx, http.MethodPost, "/seed", map[string]string{"text": text}, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ConsumeSeeds deletes seeds the agent has used and returns how many
// the server actually removed.
func (c *Client) ConsumeSeeds(ctx context.Context, ids []int64) (int64, error) {
	var resp api.ConsumeResponse
	if err := c.do(ctx, http.MethodPost, "/consume-seeds", api.ConsumeRequest{IDs: ids}, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// SetTrajectory starts a new voting cycle.
func (c *Client) SetTrajectory(ctx context.Context, t api.Trajectory) (*api.State, error) {
	var st api.State
	if err := c.do(ctx, http.MethodPost, "/set-trajectory", t, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Publish appends an artifact.
func (c *Client) Publish(ctx context.Context, a api.Artifact) (*api.State, error) {
	var st api.State
	if err := c.do(ctx, http.MethodPost, "/publish", a, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Healthy checks if the server and its store are reachable.
func (c *Client) Healthy(ctx context.Context) bool {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil) == nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, rdr)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.agentToken != "" {
		req.Header.Set(agentTokenHeader, c.agentToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		se := &StatusError{Status: resp.StatusCode}
		json.Unmarshal(data, &se.Body)
		return fmt.Errorf("%s %s: %w", method, path, se)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
