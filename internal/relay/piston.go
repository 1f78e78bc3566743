package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// File is a single in-memory source file sent to the execution service.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ExecuteRequest is the body of a Piston execute call.
type ExecuteRequest struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Files    []File `json:"files"`
	Stdin    string `json:"stdin"`
}

// Stage is the outcome of one Piston stage (compile or run).
type Stage struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Output string `json:"output"`
	Code   *int   `json:"code"`
	Signal string `json:"signal"`
}

// ExecuteResponse is the decoded Piston reply. Only Run.Output reaches callers
// of the relay; the rest is kept for logging.
type ExecuteResponse struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Run      *Stage `json:"run"`
	Compile  *Stage `json:"compile,omitempty"`
}

// StatusError is returned when the execution service answers with a non-2xx
// status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("execution service returned %d: %s", e.StatusCode, e.Body)
}

// ErrMissingRun means the service answered 2xx without a run stage.
var ErrMissingRun = errors.New("response has no run stage")

// Executor runs a single request against a remote execution service.
type Executor interface {
	Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, error)
}

// PistonClient talks to a Piston-compatible /execute endpoint.
type PistonClient struct {
	url  string
	http *http.Client
}

// NewPistonClient creates a client for the execute endpoint at url. A nil
// httpClient means http.DefaultClient; no extra timeout is applied.
func NewPistonClient(url string, httpClient *http.Client) *PistonClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &PistonClient{url: url, http: httpClient}
}

func (c *PistonClient) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling execution service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var out ExecuteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if out.Run == nil {
		return nil, ErrMissingRun
	}
	return &out, nil
}
