// Package docking implements the Fred-style docking evaluator: candidate
// conformer ensembles are docked into a prepared receptor pocket and scored
// by the best pose's interaction energy.
package docking

import (
	"encoding/json"
	"os"

	"github.com/copyleftdev/molscore/internal/scoring"
)

// ReceptorAtom is one receptor atom lining the pocket.
type ReceptorAtom struct {
	Element string     `json:"element"`
	Pos     [3]float64 `json:"pos"`
	// Donor/acceptor flags mark hydrogen-bonding atoms of the pocket.
	Donor    bool `json:"donor,omitempty"`
	Acceptor bool `json:"acceptor,omitempty"`
}

// Receptor is the prepared docking target: a pocket center and radius plus
// the atoms lining it.
type Receptor struct {
	Center [3]float64     `json:"center"`
	Radius float64        `json:"radius"`
	Atoms  []ReceptorAtom `json:"atoms"`
}

// DesignUnit is the on-disk prepared-receptor format (JSON).
type DesignUnit struct {
	Title    string    `json:"title"`
	Receptor *Receptor `json:"receptor"`
}

// HasReceptor reports whether the design unit carries a usable receptor
// definition.
func (du *DesignUnit) HasReceptor() bool {
	return du.Receptor != nil && len(du.Receptor.Atoms) > 0
}

// LoadDesignUnit reads a design-unit file and returns a docking engine bound
// to its receptor with default options. Every failure here is a
// *scoring.FatalError: an unreadable or receptor-less design unit means the
// run is misconfigured, and callers are expected to abort rather than
// recover.
func LoadDesignUnit(path string) (*Dock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, scoring.WrapFatal(err, "unable to open "+path+" for reading")
	}
	var du DesignUnit
	if err := json.Unmarshal(data, &du); err != nil {
		return nil, scoring.WrapFatal(err, "failed to read design unit")
	}
	if !du.HasReceptor() {
		return nil, scoring.Fatalf("design unit %q does not contain a receptor", du.Title)
	}
	return NewDock(&du, DefaultDockOptions()), nil
}
