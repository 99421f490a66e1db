package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// StartRunRequest is the optional body of POST /runs
type StartRunRequest struct {
	Paths []int `json:"paths,omitempty"`
}

// StartRunResponse acknowledges a launched run
type StartRunResponse struct {
	RunID string `json:"run_id"`
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Runs.List())
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	status, ok := s.deps.Runs.Get(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, "run_not_found", "No run with id "+id)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Launcher == nil {
		writeError(w, r, http.StatusNotImplemented, "launch_disabled", "This server does not launch runs")
		return
	}

	var req StartRunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
			return
		}
	}

	id, err := s.deps.Launcher.Launch(req.Paths)
	if err != nil {
		log.Warn().Err(err).Str("request_id", requestID(r)).Msg("Run launch rejected")
		writeError(w, r, http.StatusConflict, "launch_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, StartRunResponse{RunID: id})
}

func (s *Server) abortRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if s.deps.Launcher == nil || !s.deps.Launcher.Abort(id) {
		writeError(w, r, http.StatusNotFound, "run_not_active", "No active run with id "+id)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeError(w, r, http.StatusNotFound, "endpoint_not_found", "The requested endpoint does not exist")
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestID(r),
		Timestamp: time.Now().UTC(),
	})
}
