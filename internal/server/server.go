package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/copyleftdev/molscore/internal/chem"
	"github.com/copyleftdev/molscore/internal/config"
	"github.com/copyleftdev/molscore/internal/logging"
	"github.com/copyleftdev/molscore/internal/scoring"
	"github.com/copyleftdev/molscore/internal/scoring/conformer"
	"github.com/copyleftdev/molscore/internal/scoring/docking"
	"github.com/copyleftdev/molscore/internal/scoring/shape"
)

// Logger defines the logging interface used by the server.
// This allows us to be flexible with our logging implementation.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// EvaluatorState is one live evaluator instance. Evaluators are stateful and
// not safe for concurrent use, so each instance carries its own mutex and
// calls are serialized through it.
type EvaluatorState struct {
	ID       string
	Kind     string
	Created  time.Time
	LastUsed time.Time

	mu   sync.Mutex
	eval scoring.Evaluator
}

// Server exposes evaluator construction and evaluation over HTTP and
// JSON-RPC. An external optimizer creates one evaluator per run and calls
// evaluate on it repeatedly.
type Server struct {
	cfg    *config.Config
	logger Logger

	evaluators   map[string]*EvaluatorState
	evaluatorsMu sync.RWMutex
}

// NewServer creates a new server instance with the given config and logger.
func NewServer(cfg *config.Config, logger Logger) *Server {
	return &Server{
		cfg:        cfg,
		logger:     logger,
		evaluators: make(map[string]*EvaluatorState),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/evaluators", s.handleCreate)
		r.Get("/evaluators/{id}", s.handleStatus)
		r.Post("/evaluators/{id}/evaluate", s.handleEvaluate)
		r.Put("/evaluators/{id}/confs", s.handleSetMaxConfs)
		r.Delete("/evaluators/{id}", s.handleDelete)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// newEvaluator constructs a concrete evaluator for the requested kind. Each
// 3D evaluator gets its own embedding engine so instances never share
// logging state.
func (s *Server) newEvaluator(kind string, cfg scoring.Config) (scoring.Evaluator, error) {
	zl := logging.NewZapLogger(s.logger.WithFields(map[string]interface{}{
		"component": "scoring",
	}))
	switch kind {
	case scoring.KindMolecularWeight:
		return scoring.NewMolWeightEvaluator(), nil
	case scoring.KindFingerprint:
		return scoring.NewFingerprintEvaluator(cfg)
	case scoring.KindLookup:
		return scoring.NewLookupEvaluator(cfg)
	case scoring.KindShapeOverlay:
		gen := conformer.NewGenerator(chem.NewEngine(s.cfg.Scoring.EmbedSeed, zl))
		return shape.New(s.withDefaultConfs(cfg), gen, zl)
	case scoring.KindDocking:
		gen := conformer.NewGenerator(chem.NewEngine(s.cfg.Scoring.EmbedSeed, zl))
		dcfg := s.withDefaultConfs(cfg)
		if _, ok := dcfg["fallback_score"]; !ok {
			dcfg["fallback_score"] = fmt.Sprintf("%g", s.cfg.Scoring.DockingFallbackScore)
		}
		return docking.New(dcfg, gen, zl)
	default:
		return nil, fmt.Errorf("unknown evaluator kind %q", kind)
	}
}

// withDefaultConfs copies cfg and fills in the service-level conformer
// budget when the request did not name one.
func (s *Server) withDefaultConfs(cfg scoring.Config) scoring.Config {
	out := scoring.Config{"max_confs": fmt.Sprintf("%d", s.cfg.Scoring.MaxConfs)}
	for k, v := range cfg {
		out[k] = v
	}
	return out
}

// createEvaluator builds and registers an instance, returning its state.
func (s *Server) createEvaluator(kind string, cfg scoring.Config) (*EvaluatorState, error) {
	eval, err := s.newEvaluator(kind, cfg)
	if err != nil {
		return nil, err
	}
	state := &EvaluatorState{
		ID:       uuid.NewString(),
		Kind:     kind,
		Created:  time.Now(),
		LastUsed: time.Now(),
		eval:     eval,
	}
	s.evaluatorsMu.Lock()
	s.evaluators[state.ID] = state
	s.evaluatorsMu.Unlock()

	s.logger.Info("Evaluator created", map[string]interface{}{
		"evaluator_id": state.ID,
		"kind":         kind,
	})
	return state, nil
}

func (s *Server) getEvaluator(id string) (*EvaluatorState, bool) {
	s.evaluatorsMu.RLock()
	defer s.evaluatorsMu.RUnlock()
	state, ok := s.evaluators[id]
	return state, ok
}

// evaluateResult is the common evaluate payload for REST and RPC.
type evaluateResult struct {
	EvaluatorID string  `json:"evaluator_id"`
	Smiles      string  `json:"smiles"`
	Canonical   string  `json:"canonical_smiles"`
	Score       float64 `json:"score"`
	Counter     int     `json:"counter"`
}

// evaluate runs one scoring call on the named instance, serialized per
// instance.
func (s *Server) evaluate(id, smiles string) (*evaluateResult, error) {
	state, ok := s.getEvaluator(id)
	if !ok {
		return nil, fmt.Errorf("evaluator not found")
	}
	mol, err := chem.ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	score, err := state.eval.Evaluate(mol)
	state.LastUsed = time.Now()
	if err != nil {
		return nil, err
	}
	return &evaluateResult{
		EvaluatorID: id,
		Smiles:      smiles,
		Canonical:   chem.CanonicalSMILES(mol),
		Score:       score,
		Counter:     state.eval.Counter(),
	}, nil
}

// statusResult reports an instance's run state.
type statusResult struct {
	EvaluatorID string    `json:"evaluator_id"`
	Kind        string    `json:"kind"`
	Counter     int       `json:"counter"`
	CacheSize   *int      `json:"cache_size,omitempty"`
	Created     time.Time `json:"created"`
	LastUsed    time.Time `json:"last_used"`
}

func (s *Server) status(id string) (*statusResult, error) {
	state, ok := s.getEvaluator(id)
	if !ok {
		return nil, fmt.Errorf("evaluator not found")
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	res := &statusResult{
		EvaluatorID: id,
		Kind:        state.Kind,
		Counter:     state.eval.Counter(),
		Created:     state.Created,
		LastUsed:    state.LastUsed,
	}
	if c, ok := state.eval.(interface{ CacheSize() int }); ok {
		n := c.CacheSize()
		res.CacheSize = &n
	}
	return res, nil
}

func (s *Server) setMaxConfs(id string, n int) error {
	state, ok := s.getEvaluator(id)
	if !ok {
		return fmt.Errorf("evaluator not found")
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	cs, ok := state.eval.(scoring.ConfSetter)
	if !ok {
		return fmt.Errorf("evaluator kind %q has no conformer budget", state.Kind)
	}
	cs.SetMaxConfs(n)
	return nil
}

// handleCreate handles POST /api/v1/evaluators.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var reqBody struct {
		Kind   string            `json:"kind"`
		Config map[string]string `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	state, err := s.createEvaluator(reqBody.Kind, scoring.Config(reqBody.Config))
	if err != nil {
		status := http.StatusBadRequest
		if scoring.IsFatal(err) {
			status = http.StatusInternalServerError
		}
		s.respondError(w, status, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"evaluator_id": state.ID,
		"kind":         state.Kind,
	})
}

// handleEvaluate handles POST /api/v1/evaluators/{id}/evaluate.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var reqBody struct {
		Smiles string `json:"smiles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	result, err := s.evaluate(id, reqBody.Smiles)
	if err != nil {
		switch {
		case err.Error() == "evaluator not found":
			s.respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, scoring.ErrNotInTable):
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			s.respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// handleStatus handles GET /api/v1/evaluators/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	result, err := s.status(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// handleSetMaxConfs handles PUT /api/v1/evaluators/{id}/confs.
func (s *Server) handleSetMaxConfs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var reqBody struct {
		MaxConfs int `json:"max_confs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if reqBody.MaxConfs < 1 {
		s.respondError(w, http.StatusBadRequest, "max_confs must be positive")
		return
	}
	if err := s.setMaxConfs(id, reqBody.MaxConfs); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"evaluator_id": id,
		"max_confs":    reqBody.MaxConfs,
	})
}

// handleDelete handles DELETE /api/v1/evaluators/{id}. Evaluators are
// discarded at the end of an optimization run; in-memory caches go with
// them.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.evaluatorsMu.Lock()
	_, ok := s.evaluators[id]
	delete(s.evaluators, id)
	s.evaluatorsMu.Unlock()
	if !ok {
		s.respondError(w, http.StatusNotFound, "evaluator not found")
		return
	}
	s.logger.Info("Evaluator deleted", map[string]interface{}{"evaluator_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  status,
		"message": message,
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// handleJSONRPC handles JSON-RPC 2.0 requests.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string                 `json:"jsonrpc"`
		ID      interface{}            `json:"id"`
		Method  string                 `json:"method"`
		Params  map[string]interface{} `json:"params,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondRPCError(w, -32700, "Parse error", nil)
		return
	}
	if request.JSONRPC != "2.0" {
		s.respondRPCError(w, -32600, "Invalid Request", nil)
		return
	}

	var result interface{}
	var err error
	switch request.Method {
	case "evaluator.create":
		result, err = s.rpcCreate(request.Params)
	case "evaluator.evaluate":
		result, err = s.rpcEvaluate(request.Params)
	case "evaluator.status":
		result, err = s.rpcStatus(request.Params)
	case "evaluator.set_max_confs":
		result, err = s.rpcSetMaxConfs(request.Params)
	default:
		s.respondRPCError(w, -32601, "Method not found", request.ID)
		return
	}
	if err != nil {
		s.respondRPCError(w, -32000, err.Error(), request.ID)
		return
	}

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *Server) rpcCreate(params map[string]interface{}) (interface{}, error) {
	kind, _ := params["kind"].(string)
	if kind == "" {
		return nil, fmt.Errorf("kind is required")
	}
	cfg := scoring.Config{}
	if raw, ok := params["config"].(map[string]interface{}); ok {
		for k, v := range raw {
			cfg[k] = fmt.Sprintf("%v", v)
		}
	}
	state, err := s.createEvaluator(kind, cfg)
	if err != nil {
		return nil, err
	}
	return map[string]string{"evaluator_id": state.ID, "kind": state.Kind}, nil
}

func (s *Server) rpcEvaluate(params map[string]interface{}) (interface{}, error) {
	id, _ := params["evaluator_id"].(string)
	smiles, _ := params["smiles"].(string)
	if id == "" || smiles == "" {
		return nil, fmt.Errorf("evaluator_id and smiles are required")
	}
	return s.evaluate(id, smiles)
}

func (s *Server) rpcStatus(params map[string]interface{}) (interface{}, error) {
	id, _ := params["evaluator_id"].(string)
	if id == "" {
		return nil, fmt.Errorf("evaluator_id is required")
	}
	return s.status(id)
}

func (s *Server) rpcSetMaxConfs(params map[string]interface{}) (interface{}, error) {
	id, _ := params["evaluator_id"].(string)
	n, ok := params["max_confs"].(float64)
	if id == "" || !ok || n < 1 {
		return nil, fmt.Errorf("evaluator_id and a positive max_confs are required")
	}
	if err := s.setMaxConfs(id, int(n)); err != nil {
		return nil, err
	}
	return map[string]interface{}{"evaluator_id": id, "max_confs": int(n)}, nil
}

func (s *Server) respondRPCError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  code,
		"message": message,
	})
	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// Close releases server resources. Evaluator caches are in-memory only, so
// there is nothing to persist.
func (s *Server) Close() error {
	s.evaluatorsMu.Lock()
	defer s.evaluatorsMu.Unlock()
	s.evaluators = make(map[string]*EvaluatorState)
	return nil
}
