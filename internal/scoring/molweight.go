package scoring

import "github.com/copyleftdev/molscore/internal/chem"

// MolWeightEvaluator scores a molecule by its molecular weight. It exists as
// a cheap smoke-test objective, not a real optimization target.
type MolWeightEvaluator struct {
	n int
}

// NewMolWeightEvaluator returns a molecular weight evaluator.
func NewMolWeightEvaluator() *MolWeightEvaluator {
	return &MolWeightEvaluator{}
}

func (e *MolWeightEvaluator) Evaluate(mol *chem.Mol) (float64, error) {
	e.n++
	Evaluations.WithLabelValues(KindMolecularWeight).Inc()
	return chem.MolWeight(mol), nil
}

func (e *MolWeightEvaluator) Counter() int { return e.n }
