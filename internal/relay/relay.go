// Package relay forwards run requests to a remote execution service and
// reduces its answer to the captured output.
package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/michaelbrown/runpad/internal/lang"
)

// FailureMessage is the only thing callers learn about a failed run.
const FailureMessage = "Error executing code."

// RunRequest is what the editor submits.
type RunRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Input    string `json:"input"`
}

// RunResponse is what the relay answers with, on success and on failure.
type RunResponse struct {
	Output string `json:"output"`
}

// Service builds downstream requests and collapses their outcome.
type Service struct {
	exec    Executor
	version string
	log     *slog.Logger
}

// New creates a Service. An empty version means "*".
func New(exec Executor, version string, log *slog.Logger) *Service {
	if version == "" {
		version = "*"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{exec: exec, version: version, log: log}
}

// BuildRequest maps a RunRequest to the downstream body. The language tag is
// passed through verbatim; only the file name depends on the lookup.
func BuildRequest(req RunRequest, version string) ExecuteRequest {
	return ExecuteRequest{
		Language: req.Language,
		Version:  version,
		Files: []File{{
			Name:    fmt.Sprintf("main.%s", lang.Extension(req.Language)),
			Content: req.Code,
		}},
		Stdin: req.Input,
	}
}

// Run forwards req and returns the downstream run output. Any failure is
// logged with its cause and returned as an error; callers must not show that
// error to users.
func (s *Service) Run(ctx context.Context, req RunRequest) (RunResponse, error) {
	runID := uuid.NewString()
	log := s.log.With("run", runID, "language", req.Language)

	res, err := s.exec.Execute(ctx, BuildRequest(req, s.version))
	if err != nil {
		log.Error("execution error", "err", err)
		return RunResponse{Output: FailureMessage}, fmt.Errorf("run %s: %w", runID, err)
	}

	attrs := []any{"version", res.Version}
	if res.Run.Code != nil {
		attrs = append(attrs, "exit", *res.Run.Code)
	}
	log.Debug("execution finished", attrs...)

	return RunResponse{Output: res.Run.Output}, nil
}
