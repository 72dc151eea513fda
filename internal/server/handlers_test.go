package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantalloc/internal/config"
	"github.com/aristath/quantalloc/internal/engine"
)

func testServer() *Server {
	cfg := config.EngineConfig{
		Tau:                0.05,
		ConditionThreshold: 1e8,
		FrontierPoints:     8,
		LambdaMax:          50,
		Trials:             200,
		Horizon:            10,
		DecayHalfLife:      5,
		PercentileLow:      0.05,
		PercentileHigh:     0.95,
	}
	svc := engine.NewService(cfg, engine.Options{}, zerolog.Nop())
	return New(Config{Log: zerolog.Nop(), Engine: svc, Port: 0, DevMode: true})
}

func postJSON(t *testing.T, srv *Server, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func testCandidates() []map[string]interface{} {
	return []map[string]interface{}{
		{"id": "c1", "alpha": 0.8, "risk": 0.3},
		{"id": "c2", "alpha": 0.5, "risk": 0.2},
		{"id": "c3", "alpha": 0.2, "risk": 0.1},
	}
}

func TestHandleHealth(t *testing.T) {
	srv := testServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHandleSystemStatus(t *testing.T) {
	srv := testServer()

	req := httptest.NewRequest(http.MethodGet, "/api/system/status", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "uptime_seconds")
	assert.Contains(t, body, "memory_percent")
}

func TestHandleOptimize(t *testing.T) {
	srv := testServer()

	rec := postJSON(t, srv, "/api/engine/optimize", map[string]interface{}{
		"candidates": testCandidates(),
		"lambda":     1.0,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Weights        map[string]float64 `json:"weights"`
		ExpectedReturn float64            `json:"expected_return"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	var total float64
	for _, w := range body.Weights {
		assert.GreaterOrEqual(t, w, 0.0)
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-6)
}

func TestHandleOptimize_BadRequest(t *testing.T) {
	srv := testServer()

	// Missing candidates
	rec := postJSON(t, srv, "/api/engine/optimize", map[string]interface{}{"lambda": 1.0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Malformed body
	req := httptest.NewRequest(http.MethodPost, "/api/engine/optimize", bytes.NewReader([]byte("{not json")))
	raw := httptest.NewRecorder()
	srv.Router().ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestHandleOptimize_InfeasibleInput(t *testing.T) {
	srv := testServer()

	rec := postJSON(t, srv, "/api/engine/optimize", map[string]interface{}{
		"candidates": testCandidates(),
		"lambda":     -1.0,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleFrontier(t *testing.T) {
	srv := testServer()

	rec := postJSON(t, srv, "/api/engine/frontier", map[string]interface{}{
		"candidates": testCandidates(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Points []struct {
			ExpectedReturn float64 `json:"expected_return"`
			Risk           float64 `json:"risk"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Points)

	for i := 1; i < len(body.Points); i++ {
		assert.GreaterOrEqual(t, body.Points[i].Risk, body.Points[i-1].Risk)
		assert.Greater(t, body.Points[i].ExpectedReturn, body.Points[i-1].ExpectedReturn)
	}
}

func TestHandleSimulate(t *testing.T) {
	srv := testServer()

	rec := postJSON(t, srv, "/api/engine/simulate", map[string]interface{}{
		"candidates": testCandidates(),
		"weights":    map[string]float64{"c1": 0.5, "c2": 0.3, "c3": 0.2},
		"simulation": map[string]interface{}{"seed": 42, "trials": 500},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Mean            float64 `json:"mean"`
		TrialsCompleted int     `json:"trials_completed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 500, body.TrialsCompleted)
}

func TestHandleSimulate_RequiresWeights(t *testing.T) {
	srv := testServer()

	rec := postJSON(t, srv, "/api/engine/simulate", map[string]interface{}{
		"candidates": testCandidates(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleReport(t *testing.T) {
	srv := testServer()

	rec := postJSON(t, srv, "/api/engine/report", map[string]interface{}{
		"candidates": testCandidates(),
		"lambda":     1.0,
		"simulation": map[string]interface{}{"seed": 7},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "id")
	assert.Contains(t, body, "frontier")
	assert.Contains(t, body, "chosen")
	assert.Contains(t, body, "simulation")
}
