// Package scoring defines the Evaluator capability used by molecule
// optimization loops and implements the evaluators that need no 3D pipeline:
// molecular weight, fingerprint similarity, and table lookup. The 3D
// evaluators live in the shape and docking subpackages.
package scoring

import (
	"github.com/copyleftdev/molscore/internal/chem"
)

// Evaluator scores one candidate molecule per call. Implementations are
// stateful: every call advances Counter by exactly one, including calls that
// resolve to a sentinel failure score or an error. Instances are not safe
// for concurrent use; give each worker its own.
type Evaluator interface {
	// Evaluate returns the score for mol. 3D evaluators signal pipeline
	// failures through documented sentinel scores rather than errors.
	Evaluate(mol *chem.Mol) (float64, error)

	// Counter returns the number of Evaluate calls made so far.
	Counter() int
}

// ConfSetter is implemented by evaluators whose 3D pipeline has a
// conformer budget.
type ConfSetter interface {
	SetMaxConfs(n int)
}

// Evaluator kinds accepted by the service factory.
const (
	KindMolecularWeight = "molecular_weight"
	KindFingerprint     = "fingerprint"
	KindShapeOverlay    = "shape_overlay"
	KindDocking         = "docking"
	KindLookup          = "lookup"
)

// Config is the configuration mapping an evaluator is constructed from.
// Recognized keys depend on the kind: query_smiles (fingerprint),
// query_molfile (shape overlay), design_unit_file (docking), ref_filename
// (lookup).
type Config map[string]string

// Require returns the value for key or a configuration error naming it.
func (c Config) Require(key string) (string, error) {
	v, ok := c[key]
	if !ok || v == "" {
		return "", Errorf("missing required config key %q", key)
	}
	return v, nil
}

// DefaultMaxConfs is the conformer budget 3D evaluators start with.
const DefaultMaxConfs = 50
