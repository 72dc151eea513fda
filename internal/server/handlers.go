package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/quantalloc/internal/engine"
	"github.com/aristath/quantalloc/internal/modules/optimization"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "quantalloc",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleOptimize solves a single allocation at the requested risk aversion.
// POST /api/engine/optimize
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	solution, err := s.engine.Optimize(req)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, solution)
}

// handleFrontier traces the efficient frontier.
// POST /api/engine/frontier
func (s *Server) handleFrontier(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	frontier, err := s.engine.Frontier(req)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, frontier)
}

// simulateRequest wraps an engine request with the allocation to simulate.
type simulateRequest struct {
	engine.Request
	Weights map[string]float64 `json:"weights"`
}

// handleSimulate runs the scenario simulator for an explicit allocation.
// POST /api/engine/simulate
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Weights) == 0 {
		s.writeError(w, http.StatusBadRequest, "weights are required")
		return
	}

	result, err := s.engine.Simulate(r.Context(), req.Request, req.Weights)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleReport runs the full pipeline and returns the consolidated report.
// POST /api/engine/report
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	report, err := s.engine.Run(r.Context(), req)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, report.ToMap())
}

// decodeRequest parses the shared engine request body.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (engine.Request, bool) {
	var req engine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, false
	}
	if len(req.Candidates) == 0 {
		s.writeError(w, http.StatusBadRequest, "candidates are required")
		return req, false
	}
	return req, true
}

// writeEngineError maps engine failures to HTTP statuses: bad input is the
// caller's fault, anything else is ours.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, optimization.ErrInsufficientData) || errors.Is(err, optimization.ErrInfeasible) {
		status = http.StatusUnprocessableEntity
	}
	s.log.Error().Err(err).Msg("Engine request failed")
	s.writeError(w, status, err.Error())
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
