// Package conformer wraps the embedding engine in the fixed
// generate-then-score pipeline shared by the shape-overlay and docking
// evaluators.
package conformer

import (
	"github.com/copyleftdev/molscore/internal/chem"
)

// RMSThreshold is the geometric RMS below which a new conformer is treated
// as a duplicate of an existing one and dropped. Skipping deduplication can
// change downstream scores noticeably, so it stays fixed.
const RMSThreshold = 0.5

// GenerateFunc produces a conformer ensemble on mol, mutating it in place,
// and reports success. Failure is an expected outcome that callers map to
// their sentinel scores. The 3D evaluators hold one of these so tests can
// substitute a counting or failing generator.
type GenerateFunc func(mol *chem.Mol, maxConfs int) bool

// NewGenerator binds the pipeline to an engine: strict stereochemistry off
// (ambiguous centers are enumerated, not rejected), RMS deduplication at
// RMSThreshold, conformer cap from the caller. The engine's warning output
// is suppressed for the duration of each call and restored on every exit
// path.
func NewGenerator(eng *chem.Engine) GenerateFunc {
	return func(mol *chem.Mol, maxConfs int) bool {
		prev := eng.Log.SetLevel(chem.LevelError)
		defer eng.Log.SetLevel(prev)
		return eng.Embed(mol, chem.EmbedOptions{
			MaxConfs:     maxConfs,
			RMSThreshold: RMSThreshold,
			StrictStereo: false,
		})
	}
}
