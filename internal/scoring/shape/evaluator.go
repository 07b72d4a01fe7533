package shape

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/copyleftdev/molscore/internal/chem"
	"github.com/copyleftdev/molscore/internal/scoring"
	"github.com/copyleftdev/molscore/internal/scoring/conformer"
)

// FailureScore is returned (and cached) when conformer generation fails for
// a candidate. It sorts below every genuine combo score, which live in
// [0,2].
const FailureScore = -1.0

// Evaluator scores candidates by their best shape overlay against a fixed 3D
// reference. Scores are cached by canonical SMILES: a given structure is
// embedded and overlaid at most once per evaluator lifetime, and cache
// entries are never evicted or overwritten.
type Evaluator struct {
	ref      *overlapMol
	maxConfs int
	generate conformer.GenerateFunc
	cache    map[string]float64
	n        int
	logger   *zap.Logger
}

// New builds the evaluator from a config carrying query_molfile, the path to
// a 3D structure file whose first molecule becomes the immutable reference.
// An optional max_confs key overrides the default conformer budget. A nil
// generate falls back to a fresh embedding engine.
func New(cfg scoring.Config, generate conformer.GenerateFunc, logger *zap.Logger) (*Evaluator, error) {
	path, err := cfg.Require("query_molfile")
	if err != nil {
		return nil, err
	}
	ref, err := chem.ReadSDFFirst(path)
	if err != nil {
		return nil, scoring.WrapError(err, "load reference molecule").
			WithComponent("shape_overlay")
	}
	if ref.NumConfs() == 0 || ref.NumAtoms() == 0 {
		return nil, scoring.Errorf("reference %s has no 3D structure", path).
			WithComponent("shape_overlay")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if generate == nil {
		generate = conformer.NewGenerator(chem.NewEngine(0, logger))
	}
	maxConfs := scoring.DefaultMaxConfs
	if v, ok := cfg["max_confs"]; ok {
		maxConfs, err = strconv.Atoi(v)
		if err != nil {
			return nil, scoring.WrapError(err, "invalid max_confs").
				WithComponent("shape_overlay")
		}
	}
	return &Evaluator{
		ref:      prepOverlap(ref, 0),
		maxConfs: maxConfs,
		generate: generate,
		cache:    make(map[string]float64),
		logger:   logger.Named("shape_overlay"),
	}, nil
}

// Evaluate returns the Tanimoto combo score of mol's best overlay onto the
// reference, or FailureScore when the molecule cannot be embedded. Input 3D
// coordinates are discarded: the candidate is rebuilt from its canonical
// SMILES, so only topology is trusted. Cache hits skip the 3D pipeline
// entirely; the counter advances either way.
func (e *Evaluator) Evaluate(mol *chem.Mol) (float64, error) {
	e.n++
	scoring.Evaluations.WithLabelValues(scoring.KindShapeOverlay).Inc()
	timer := prometheus.NewTimer(scoring.EvaluationSeconds.WithLabelValues(scoring.KindShapeOverlay))
	defer timer.ObserveDuration()

	smi := chem.CanonicalSMILES(mol)
	if tc, ok := e.cache[smi]; ok {
		scoring.CacheHits.WithLabelValues(scoring.KindShapeOverlay).Inc()
		return tc, nil
	}

	fit, err := chem.ParseSMILES(smi)
	if err != nil {
		// Canonical output of a parsed molecule re-parses; anything else
		// is unscoreable.
		fit = &chem.Mol{}
	}
	tc := FailureScore
	if e.generate(fit, e.maxConfs) {
		tc = e.overlay(fit)
	} else {
		scoring.ConformerFailures.WithLabelValues(scoring.KindShapeOverlay).Inc()
		e.logger.Debug("conformer generation failed", zap.String("smiles", smi))
	}
	e.cache[smi] = tc
	return tc, nil
}

// overlay returns the best combo score over the fit molecule's conformer
// ensemble.
func (e *Evaluator) overlay(fit *chem.Mol) float64 {
	best := 0.0
	for c := 0; c < fit.NumConfs(); c++ {
		if tc := comboTanimoto(e.ref, prepOverlap(fit, c)); tc > best {
			best = tc
		}
	}
	return best
}

func (e *Evaluator) Counter() int { return e.n }

// SetMaxConfs changes the conformer budget for subsequent uncached calls.
// Existing cache entries are kept as-is.
func (e *Evaluator) SetMaxConfs(n int) { e.maxConfs = n }

// CacheSize returns the number of cached scores.
func (e *Evaluator) CacheSize() int { return len(e.cache) }
