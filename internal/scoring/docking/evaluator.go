package docking

import (
	"fmt"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/copyleftdev/molscore/internal/chem"
	"github.com/copyleftdev/molscore/internal/scoring"
	"github.com/copyleftdev/molscore/internal/scoring/conformer"
)

// DefaultFallbackScore is returned when a molecule cannot be docked. Native
// docking scores are small or negative, so the fallback sorts after every
// genuine score. The magnitude is policy, not a derived bound, and can be
// overridden with the fallback_score config key.
const DefaultFallbackScore = 1000.0

// Evaluator docks each candidate against the receptor loaded at
// construction and returns the best pose's score. There is no score cache:
// docking results depend on more than topology, so every call re-docks.
type Evaluator struct {
	dock     *Dock
	maxConfs int
	fallback float64
	generate conformer.GenerateFunc
	n        int
	logger   *zap.Logger
}

// New builds the evaluator from a config carrying design_unit_file. The path
// must name an existing regular file; construction fails before any
// evaluation otherwise. Loading the design unit happens exactly once, here.
func New(cfg scoring.Config, generate conformer.GenerateFunc, logger *zap.Logger) (*Evaluator, error) {
	path, err := cfg.Require("design_unit_file")
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%s was not found: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a design unit file", path)
	}
	dock, err := LoadDesignUnit(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if generate == nil {
		generate = conformer.NewGenerator(chem.NewEngine(0, logger))
	}
	e := &Evaluator{
		dock:     dock,
		maxConfs: scoring.DefaultMaxConfs,
		fallback: DefaultFallbackScore,
		generate: generate,
		logger:   logger.Named("docking"),
	}
	if v, ok := cfg["max_confs"]; ok {
		if e.maxConfs, err = strconv.Atoi(v); err != nil {
			return nil, scoring.WrapError(err, "invalid max_confs").WithComponent("docking")
		}
	}
	if v, ok := cfg["fallback_score"]; ok {
		if e.fallback, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, scoring.WrapError(err, "invalid fallback_score").WithComponent("docking")
		}
	}
	return e, nil
}

// Evaluate rebuilds the candidate from its canonical SMILES, embeds a
// conformer ensemble, and docks it. Any non-success return code (including
// conformer generation failure) yields the fallback score; on success the
// score is read back from the named score tag on the best pose.
func (e *Evaluator) Evaluate(mol *chem.Mol) (float64, error) {
	e.n++
	scoring.Evaluations.WithLabelValues(scoring.KindDocking).Inc()
	timer := prometheus.NewTimer(scoring.EvaluationSeconds.WithLabelValues(scoring.KindDocking))
	defer timer.ObserveDuration()

	smi := chem.CanonicalSMILES(mol)
	mc, err := chem.ParseSMILES(smi)
	if err != nil {
		mc = &chem.Mol{}
	}

	var pose *Pose
	retCode := ReturnCodeConformerGenError
	if e.generate(mc, e.maxConfs) {
		pose, retCode = e.dock.DockMultiConformer(mc)
	} else {
		scoring.ConformerFailures.WithLabelValues(scoring.KindDocking).Inc()
	}

	score := e.fallback
	if retCode == ReturnCodeSuccess {
		tag := e.dock.ScoreMethodName()
		e.dock.SetSDScore(pose, tag)
		if v, ok := pose.SD(tag); ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				score = parsed
			}
		}
	} else {
		e.logger.Debug("docking did not produce a score",
			zap.String("smiles", smi),
			zap.String("return_code", retCode.String()))
	}
	return score, nil
}

func (e *Evaluator) Counter() int { return e.n }

// SetMaxConfs changes the conformer budget for subsequent calls.
func (e *Evaluator) SetMaxConfs(n int) { e.maxConfs = n }
