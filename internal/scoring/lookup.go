package scoring

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/copyleftdev/molscore/internal/chem"
)

// LookupEvaluator returns precomputed values from a (SMILES, value) table
// loaded fully into memory at construction. Lookups are exact-match on the
// canonical SMILES; a miss is an error, not a default. Intended for
// deterministic testing against known inputs.
type LookupEvaluator struct {
	values map[string]float64
	n      int
}

// NewLookupEvaluator loads the CSV named by ref_filename. The file must have
// a header row with a SMILES column and a val (or value) column; table
// SMILES are canonicalized on load so the key space matches Evaluate.
func NewLookupEvaluator(cfg Config) (*LookupEvaluator, error) {
	path, err := cfg.Require("ref_filename")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, WrapError(err, "open lookup table").WithComponent("lookup")
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, WrapError(err, "read lookup table").WithComponent("lookup")
	}
	if len(rows) < 1 {
		return nil, Errorf("lookup table %s is empty", path).WithComponent("lookup")
	}
	smiCol, valCol := -1, -1
	for i, name := range rows[0] {
		switch name {
		case "SMILES":
			smiCol = i
		case "val", "value":
			valCol = i
		}
	}
	if smiCol < 0 || valCol < 0 {
		return nil, Errorf("lookup table %s needs SMILES and val columns", path).
			WithComponent("lookup")
	}

	values := make(map[string]float64, len(rows)-1)
	for li, row := range rows[1:] {
		if len(row) <= smiCol || len(row) <= valCol {
			return nil, Errorf("lookup table %s: short row %d", path, li+2).
				WithComponent("lookup")
		}
		mol, err := chem.ParseSMILES(row[smiCol])
		if err != nil {
			return nil, WrapError(err, fmt.Sprintf("row %d", li+2)).
				WithComponent("lookup").WithOperation("parse SMILES")
		}
		v, err := strconv.ParseFloat(row[valCol], 64)
		if err != nil {
			return nil, WrapError(err, fmt.Sprintf("row %d", li+2)).
				WithComponent("lookup").WithOperation("parse value")
		}
		values[chem.CanonicalSMILES(mol)] = v
	}
	return &LookupEvaluator{values: values}, nil
}

// Evaluate returns the stored value for mol. The counter advances before the
// lookup, so missing entries still count as an evaluation.
func (e *LookupEvaluator) Evaluate(mol *chem.Mol) (float64, error) {
	e.n++
	Evaluations.WithLabelValues(KindLookup).Inc()
	smi := chem.CanonicalSMILES(mol)
	v, ok := e.values[smi]
	if !ok {
		return 0, WrapError(ErrNotInTable, smi).WithComponent("lookup")
	}
	return v, nil
}

func (e *LookupEvaluator) Counter() int { return e.n }

// Len returns the number of table entries.
func (e *LookupEvaluator) Len() int { return len(e.values) }
