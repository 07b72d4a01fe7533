package chem

import (
	"math"
	"testing"
)

func TestEmbed(t *testing.T) {
	eng := NewEngine(42, nil)
	m := MustParseSMILES("CCO")
	opts := EmbedOptions{MaxConfs: 5, RMSThreshold: 0.5}
	if !eng.Embed(m, opts) {
		t.Fatal("embedding ethanol should succeed")
	}
	if m.NumConfs() < 1 || m.NumConfs() > opts.MaxConfs {
		t.Fatalf("got %d conformers, want 1..%d", m.NumConfs(), opts.MaxConfs)
	}
	for ci, conf := range m.Confs {
		for ai, c := range conf.Coords {
			for _, v := range c {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("conformer %d atom %d has non-finite coordinate %v", ci, ai, v)
				}
			}
		}
	}
	// Kept conformers must be mutually distinct under the RMS threshold.
	for i := 0; i < m.NumConfs(); i++ {
		for j := i + 1; j < m.NumConfs(); j++ {
			d := rmsDistance(centerCoords(m.Confs[i].Coords), centerCoords(m.Confs[j].Coords))
			if d < opts.RMSThreshold {
				t.Errorf("conformers %d and %d within threshold: rms %.3f", i, j, d)
			}
		}
	}
}

func TestEmbedReplacesConformers(t *testing.T) {
	eng := NewEngine(7, nil)
	m := MustParseSMILES("CCCC")
	m.Confs = append(m.Confs, Conformer{Coords: make([][3]float64, m.NumAtoms())})
	if !eng.Embed(m, EmbedOptions{MaxConfs: 3, RMSThreshold: 0.5}) {
		t.Fatal("embed failed")
	}
	for _, conf := range m.Confs {
		zero := true
		for _, c := range conf.Coords {
			if c != ([3]float64{}) {
				zero = false
			}
		}
		if zero {
			t.Fatal("stale all-zero conformer survived re-embedding")
		}
	}
}

func TestEmbedEmptyMol(t *testing.T) {
	eng := NewEngine(1, nil)
	if eng.Embed(&Mol{}, EmbedOptions{MaxConfs: 5}) {
		t.Error("embedding an empty molecule should fail")
	}
}

func TestEmbedStrictStereo(t *testing.T) {
	eng := NewEngine(1, nil)
	chiral := MustParseSMILES("C(N)(O)(F)Cl")
	if eng.Embed(chiral, EmbedOptions{MaxConfs: 2, StrictStereo: true}) {
		t.Error("strict mode should reject an unassigned stereocenter")
	}
	if !eng.Embed(chiral, EmbedOptions{MaxConfs: 2, StrictStereo: false}) {
		t.Error("non-strict mode should embed the same molecule")
	}
	achiral := MustParseSMILES("C(F)(F)(F)Cl")
	if !eng.Embed(achiral, EmbedOptions{MaxConfs: 2, StrictStereo: true}) {
		t.Error("strict mode should accept a symmetric center")
	}
}

func TestEngineLogLevels(t *testing.T) {
	log := NewEngineLog(nil)
	if log.GetLevel() != LevelWarning {
		t.Fatalf("default level = %v, want warning", log.GetLevel())
	}
	prev := log.SetLevel(LevelError)
	if prev != LevelWarning {
		t.Errorf("SetLevel returned %v, want previous warning level", prev)
	}
	if log.GetLevel() != LevelError {
		t.Errorf("level = %v after SetLevel(LevelError)", log.GetLevel())
	}
}
