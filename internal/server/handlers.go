package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/michaelbrown/runpad/internal/relay"
)

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// --- Run ---

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req relay.RunRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	// A run is not abandoned when the caller goes away.
	ctx := context.WithoutCancel(r.Context())

	res, err := s.runner.Run(ctx, req)
	if err != nil {
		// The cause was logged by the relay; the caller only gets the generic message.
		writeJSON(w, http.StatusInternalServerError, relay.RunResponse{Output: relay.FailureMessage})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// --- Catalog / health ---

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
