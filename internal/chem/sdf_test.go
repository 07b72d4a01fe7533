package chem

import (
	"os"
	"path/filepath"
	"testing"
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

func writeMolFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mol.sdf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadSDFFirst(t *testing.T) {
	m, err := ReadSDFFirst(writeMolFile(t, ethanolMolBlock))
	if err != nil {
		t.Fatal(err)
	}
	if m.NumAtoms() != 3 {
		t.Fatalf("got %d atoms, want 3", m.NumAtoms())
	}
	if m.NumConfs() != 1 {
		t.Fatalf("got %d conformers, want 1", m.NumConfs())
	}
	wantElems := []string{"C", "C", "O"}
	wantH := []int{3, 2, 1}
	for i, a := range m.Atoms {
		if a.Element != wantElems[i] {
			t.Errorf("atom %d: element %q, want %q", i, a.Element, wantElems[i])
		}
		if a.HCount != wantH[i] {
			t.Errorf("atom %d: %d implicit hydrogens, want %d", i, a.HCount, wantH[i])
		}
	}
	if got := m.Confs[0].Coords[2]; got != [3]float64{1.2560, 1.3400, 0.0} {
		t.Errorf("oxygen coordinates = %v", got)
	}
	if CanonicalSMILES(m) != CanonicalSMILES(MustParseSMILES("CCO")) {
		t.Error("ethanol mol block should canonicalize like CCO")
	}
}

func TestReadSDFFirstAromaticBonds(t *testing.T) {
	// A benzene fragment with order-4 bonds: the ring atoms should come back
	// flagged aromatic.
	block := `benzene
  test

  6  6  0  0  0  0  0  0  0  0999 V2000
    1.3900    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    0.6950    1.2037    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
   -0.6950    1.2037    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
   -1.3900    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
   -0.6950   -1.2037    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    0.6950   -1.2037    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
  1  2  4  0
  2  3  4  0
  3  4  4  0
  4  5  4  0
  5  6  4  0
  6  1  4  0
M  END
$$$$
`
	m, err := ReadSDFFirst(writeMolFile(t, block))
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range m.Atoms {
		if !a.Aromatic {
			t.Errorf("atom %d should be aromatic", i)
		}
		if a.HCount != 1 {
			t.Errorf("atom %d: %d implicit hydrogens, want 1", i, a.HCount)
		}
	}
	if CanonicalSMILES(m) != CanonicalSMILES(MustParseSMILES("c1ccccc1")) {
		t.Error("benzene mol block should canonicalize like c1ccccc1")
	}
}

func TestReadSDFFirstErrors(t *testing.T) {
	if _, err := ReadSDFFirst(filepath.Join(t.TempDir(), "absent.sdf")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := ReadSDFFirst(writeMolFile(t, "only\ntwo lines\n")); err == nil {
		t.Error("expected error for truncated file")
	}
	if _, err := ReadSDFFirst(writeMolFile(t, "a\nb\nc\nxx\n")); err == nil {
		t.Error("expected error for malformed counts line")
	}
}
