package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/copyleftdev/molscore/internal/config"
	"github.com/copyleftdev/molscore/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig creates a test configuration with default values
func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Environment: "test",
	}

	// Set up HTTP config
	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 30 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second
	cfg.HTTP.IdleTimeout = 120 * time.Second
	cfg.HTTP.ShutdownTimeout = 30 * time.Second

	// Set up logging
	cfg.Logging.Level = "error"
	cfg.Logging.Format = "console"
	cfg.Logging.Output = "stdout"

	// Set up scoring
	cfg.Scoring.MaxConfs = 10
	cfg.Scoring.EmbedSeed = 42
	cfg.Scoring.DockingFallbackScore = 1000

	return cfg
}

// testLogger creates a test logger
func testLogger(t *testing.T) *logging.Logger {
	logger, err := logging.NewLogger(&logging.Config{
		Level:  "error",
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

// testRouter returns a router with the server's routes registered.
func testRouter(t *testing.T) (*Server, chi.Router) {
	srv := NewServer(testConfig(t), testLogger(t))
	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return srv, r
}

// doJSON performs a request with a JSON body and decodes the JSON response.
func doJSON(t *testing.T, r chi.Router, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	var decoded map[string]interface{}
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded))
	}
	return rr, decoded
}

func TestNewServer(t *testing.T) {
	srv := NewServer(testConfig(t), testLogger(t))
	assert.NotNil(t, srv, "Server should be created")
}

func TestRegisterRoutes(t *testing.T) {
	_, r := testRouter(t)

	tests := []struct {
		method      string
		path        string
		shouldExist bool
	}{
		{"POST", "/api/v1/evaluators", true},
		{"GET", "/api/v1/evaluators/123", true},
		{"POST", "/api/v1/evaluators/123/evaluate", true},
		{"PUT", "/api/v1/evaluators/123/confs", true},
		{"DELETE", "/api/v1/evaluators/123", true},
		{"POST", "/rpc", true},
		{"GET", "/healthz", false}, // Not registered by server package
		{"GET", "/nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString("{}"))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			// Registered routes may still 404 on an unknown id, but chi's
			// router-level 405/404 only shows for unregistered patterns.
			if !tt.shouldExist {
				assert.Equal(t, http.StatusNotFound, rr.Code)
			} else if tt.path == "/api/v1/evaluators" || tt.path == "/rpc" {
				assert.NotEqual(t, http.StatusNotFound, rr.Code,
					"Route %s %s should exist", tt.method, tt.path)
			}
		})
	}
}

func TestCreateAndEvaluate(t *testing.T) {
	_, r := testRouter(t)

	rr, created := doJSON(t, r, "POST", "/api/v1/evaluators", map[string]interface{}{
		"kind": "molecular_weight",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	id, _ := created["evaluator_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "molecular_weight", created["kind"])

	rr, result := doJSON(t, r, "POST", "/api/v1/evaluators/"+id+"/evaluate", map[string]interface{}{
		"smiles": "CCO",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.InDelta(t, 46.069, result["score"], 0.01)
	assert.Equal(t, float64(1), result["counter"])
	assert.Equal(t, "CCO", result["smiles"])
	assert.NotEmpty(t, result["canonical_smiles"])

	// A second call advances the counter.
	rr, result = doJSON(t, r, "POST", "/api/v1/evaluators/"+id+"/evaluate", map[string]interface{}{
		"smiles": "OCC",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(2), result["counter"])

	rr, status := doJSON(t, r, "GET", "/api/v1/evaluators/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(2), status["counter"])
	assert.Equal(t, "molecular_weight", status["kind"])

	rr, _ = doJSON(t, r, "DELETE", "/api/v1/evaluators/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr, _ = doJSON(t, r, "POST", "/api/v1/evaluators/"+id+"/evaluate", map[string]interface{}{
		"smiles": "CCO",
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateFingerprintEvaluator(t *testing.T) {
	_, r := testRouter(t)

	rr, created := doJSON(t, r, "POST", "/api/v1/evaluators", map[string]interface{}{
		"kind":   "fingerprint",
		"config": map[string]string{"query_smiles": "CCO"},
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	id := created["evaluator_id"].(string)

	rr, result := doJSON(t, r, "POST", "/api/v1/evaluators/"+id+"/evaluate", map[string]interface{}{
		"smiles": "OCC",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), result["score"], "reference structure should score 1.0")
}

func TestCreateErrors(t *testing.T) {
	_, r := testRouter(t)

	rr, _ := doJSON(t, r, "POST", "/api/v1/evaluators", map[string]interface{}{
		"kind": "teleportation",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Missing required config key.
	rr, _ = doJSON(t, r, "POST", "/api/v1/evaluators", map[string]interface{}{
		"kind": "fingerprint",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// A corrupt design unit is a fatal misconfiguration, not a bad request.
	path := filepath.Join(t.TempDir(), "receptor.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	rr, _ = doJSON(t, r, "POST", "/api/v1/evaluators", map[string]interface{}{
		"kind":   "docking",
		"config": map[string]string{"design_unit_file": path},
	})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestEvaluateErrors(t *testing.T) {
	_, r := testRouter(t)

	rr, _ := doJSON(t, r, "POST", "/api/v1/evaluators/no-such-id/evaluate", map[string]interface{}{
		"smiles": "CCO",
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	_, created := doJSON(t, r, "POST", "/api/v1/evaluators", map[string]interface{}{
		"kind": "molecular_weight",
	})
	id := created["evaluator_id"].(string)

	rr, _ = doJSON(t, r, "POST", "/api/v1/evaluators/"+id+"/evaluate", map[string]interface{}{
		"smiles": "C(",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEvaluateLookupMiss(t *testing.T) {
	_, r := testRouter(t)

	path := filepath.Join(t.TempDir(), "table.csv")
	require.NoError(t, os.WriteFile(path, []byte("SMILES,val\nCCO,5.0\n"), 0o644))

	_, created := doJSON(t, r, "POST", "/api/v1/evaluators", map[string]interface{}{
		"kind":   "lookup",
		"config": map[string]string{"ref_filename": path},
	})
	id := created["evaluator_id"].(string)

	rr, result := doJSON(t, r, "POST", "/api/v1/evaluators/"+id+"/evaluate", map[string]interface{}{
		"smiles": "CCO",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(5), result["score"])

	rr, _ = doJSON(t, r, "POST", "/api/v1/evaluators/"+id+"/evaluate", map[string]interface{}{
		"smiles": "CCC",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	// The miss still advanced the counter.
	_, status := doJSON(t, r, "GET", "/api/v1/evaluators/"+id, nil)
	assert.Equal(t, float64(2), status["counter"])
}

func TestSetMaxConfs(t *testing.T) {
	_, r := testRouter(t)

	_, created := doJSON(t, r, "POST", "/api/v1/evaluators", map[string]interface{}{
		"kind": "molecular_weight",
	})
	id := created["evaluator_id"].(string)

	// Molecular weight has no conformer budget.
	rr, _ := doJSON(t, r, "PUT", "/api/v1/evaluators/"+id+"/confs", map[string]interface{}{
		"max_confs": 20,
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = doJSON(t, r, "PUT", "/api/v1/evaluators/"+id+"/confs", map[string]interface{}{
		"max_confs": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestJSONRPC(t *testing.T) {
	_, r := testRouter(t)

	rr, resp := doJSON(t, r, "POST", "/rpc", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "evaluator.create",
		"params": map[string]interface{}{
			"kind": "molecular_weight",
		},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok, "response should carry a result: %v", resp)
	id := result["evaluator_id"].(string)
	require.NotEmpty(t, id)

	rr, resp = doJSON(t, r, "POST", "/rpc", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "evaluator.evaluate",
		"params": map[string]interface{}{
			"evaluator_id": id,
			"smiles":       "CCO",
		},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	result, ok = resp["result"].(map[string]interface{})
	require.True(t, ok, "response should carry a result: %v", resp)
	assert.InDelta(t, 46.069, result["score"], 0.01)
	assert.Equal(t, float64(1), result["counter"])

	rr, resp = doJSON(t, r, "POST", "/rpc", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      3,
		"method":  "evaluator.status",
		"params": map[string]interface{}{
			"evaluator_id": id,
		},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	result, ok = resp["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), result["counter"])
}

func TestJSONRPCErrors(t *testing.T) {
	_, r := testRouter(t)

	tests := []struct {
		name string
		body interface{}
		code float64
	}{
		{
			name: "invalid version",
			body: map[string]interface{}{"jsonrpc": "1.0", "id": 1, "method": "evaluator.status"},
			code: -32600,
		},
		{
			name: "method not found",
			body: map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": "evaluator.transmute"},
			code: -32601,
		},
		{
			name: "missing params",
			body: map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": "evaluator.evaluate"},
			code: -32000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, resp := doJSON(t, r, "POST", "/rpc", tt.body)
			require.Equal(t, http.StatusOK, rr.Code)
			errObj, ok := resp["error"].(map[string]interface{})
			require.True(t, ok, "response should carry an error: %v", resp)
			assert.Equal(t, tt.code, errObj["code"])
		})
	}

	// Unparseable body
	req := httptest.NewRequest("POST", "/rpc", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	errObj := resp["error"].(map[string]interface{})
	assert.Equal(t, float64(-32700), errObj["code"])
}

func TestClose(t *testing.T) {
	srv, r := testRouter(t)

	_, created := doJSON(t, r, "POST", "/api/v1/evaluators", map[string]interface{}{
		"kind": "molecular_weight",
	})
	id := created["evaluator_id"].(string)

	err := srv.Close()
	assert.NoError(t, err, "Close should not return an error")

	rr, _ := doJSON(t, r, "GET", "/api/v1/evaluators/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code, "Close discards live evaluators")
}
