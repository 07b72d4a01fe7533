package shape

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/copyleftdev/molscore/internal/chem"
	"github.com/copyleftdev/molscore/internal/scoring"
	"github.com/copyleftdev/molscore/internal/scoring/conformer"
)

const ethanolMolBlock = `ethanol
  test

  3  2  0  0  0  0  0  0  0  0999 V2000
   -0.7560    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    0.7560    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    1.2560    1.3400    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0
  1  2  1  0
  2  3  1  0
M  END
$$$$
`

func refMolFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ref.sdf")
	if err := os.WriteFile(path, []byte(ethanolMolBlock), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewConfigErrors(t *testing.T) {
	if _, err := New(scoring.Config{}, nil, nil); err == nil {
		t.Error("expected error for missing query_molfile")
	}
	if _, err := New(scoring.Config{"query_molfile": "/no/such.sdf"}, nil, nil); err == nil {
		t.Error("expected error for missing reference file")
	}
	cfg := scoring.Config{"query_molfile": refMolFile(t), "max_confs": "many"}
	if _, err := New(cfg, nil, nil); err == nil {
		t.Error("expected error for non-numeric max_confs")
	}
}

func TestEvaluateScoresAgainstReference(t *testing.T) {
	gen := conformer.NewGenerator(chem.NewEngine(42, nil))
	e, err := New(scoring.Config{"query_molfile": refMolFile(t)}, gen, nil)
	if err != nil {
		t.Fatal(err)
	}
	score, err := e.Evaluate(chem.MustParseSMILES("CCO"))
	if err != nil {
		t.Fatal(err)
	}
	if score <= 0 || score > 2 {
		t.Errorf("combo score = %v, want in (0,2]", score)
	}
	if e.Counter() != 1 {
		t.Errorf("counter = %d, want 1", e.Counter())
	}
}

func TestEvaluateCaches(t *testing.T) {
	calls := 0
	inner := conformer.NewGenerator(chem.NewEngine(42, nil))
	gen := func(m *chem.Mol, maxConfs int) bool {
		calls++
		return inner(m, maxConfs)
	}
	e, err := New(scoring.Config{"query_molfile": refMolFile(t)}, gen, nil)
	if err != nil {
		t.Fatal(err)
	}

	first, err := e.Evaluate(chem.MustParseSMILES("CCO"))
	if err != nil {
		t.Fatal(err)
	}
	// Same structure in a different atom order hits the cache.
	second, err := e.Evaluate(chem.MustParseSMILES("OCC"))
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("cached score differs: %v vs %v", first, second)
	}
	if calls != 1 {
		t.Errorf("generator ran %d times, want 1", calls)
	}
	if e.Counter() != 2 {
		t.Errorf("counter = %d, want 2 (cache hits still count)", e.Counter())
	}
	if e.CacheSize() != 1 {
		t.Errorf("cache size = %d, want 1", e.CacheSize())
	}
}

func TestEvaluateConformerFailure(t *testing.T) {
	calls := 0
	failing := func(m *chem.Mol, maxConfs int) bool {
		calls++
		return false
	}
	e, err := New(scoring.Config{"query_molfile": refMolFile(t)}, failing, nil)
	if err != nil {
		t.Fatal(err)
	}
	score, err := e.Evaluate(chem.MustParseSMILES("CCO"))
	if err != nil {
		t.Fatal(err)
	}
	if score != FailureScore {
		t.Errorf("score = %v, want %v", score, FailureScore)
	}
	// The failure is cached like any other score.
	if _, err := e.Evaluate(chem.MustParseSMILES("CCO")); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("generator ran %d times, want 1", calls)
	}
	if e.Counter() != 2 {
		t.Errorf("counter = %d, want 2", e.Counter())
	}
}

func TestSetMaxConfsKeepsCache(t *testing.T) {
	calls := 0
	inner := conformer.NewGenerator(chem.NewEngine(42, nil))
	gen := func(m *chem.Mol, maxConfs int) bool {
		calls++
		return inner(m, maxConfs)
	}
	e, err := New(scoring.Config{"query_molfile": refMolFile(t), "max_confs": "5"}, gen, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Evaluate(chem.MustParseSMILES("CCO")); err != nil {
		t.Fatal(err)
	}
	e.SetMaxConfs(20)
	if _, err := e.Evaluate(chem.MustParseSMILES("CCO")); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("generator ran %d times, want 1: changing the budget must not drop cached scores", calls)
	}
}
