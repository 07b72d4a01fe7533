package scoring

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/copyleftdev/molscore/internal/chem"
)

// FingerprintEvaluator scores a molecule by the Tanimoto similarity of its
// circular fingerprint to a reference structure fixed at construction.
// Fingerprinting is cheap relative to the 3D methods, so results are not
// cached.
type FingerprintEvaluator struct {
	refSmiles string
	refFP     *bitset.BitSet
	n         int
}

// NewFingerprintEvaluator builds the evaluator from a config carrying
// query_smiles. The reference fingerprint is computed once here.
func NewFingerprintEvaluator(cfg Config) (*FingerprintEvaluator, error) {
	smi, err := cfg.Require("query_smiles")
	if err != nil {
		return nil, err
	}
	ref, err := chem.ParseSMILES(smi)
	if err != nil {
		return nil, WrapError(err, "invalid query_smiles").WithComponent("fingerprint")
	}
	return &FingerprintEvaluator{
		refSmiles: smi,
		refFP:     chem.MorganFingerprint(ref, chem.FingerprintRadius, chem.FingerprintBits),
	}, nil
}

// Evaluate returns the Tanimoto similarity in [0,1] between mol and the
// reference; the reference itself scores 1.0.
func (e *FingerprintEvaluator) Evaluate(mol *chem.Mol) (float64, error) {
	e.n++
	Evaluations.WithLabelValues(KindFingerprint).Inc()
	fp := chem.MorganFingerprint(mol, chem.FingerprintRadius, chem.FingerprintBits)
	return chem.Tanimoto(e.refFP, fp), nil
}

func (e *FingerprintEvaluator) Counter() int { return e.n }
