// Package chem implements the molecule model and toolkit operations used by
// the scoring evaluators: SMILES parsing and canonicalization, V2000 SDF
// reading, molecular weight, circular fingerprints, and 3D conformer
// embedding with shape overlap primitives.
package chem

// Atom is a heavy atom in a molecular graph. Hydrogens are implicit and
// tracked as a count on their parent atom.
type Atom struct {
	// Element symbol, e.g. "C", "Cl"
	Element string
	// Formal charge
	Charge int
	// Aromatic marks atoms written in lowercase SMILES
	Aromatic bool
	// HCount is the number of implicit hydrogens
	HCount int
	// Isotope is the mass number, or 0 for the natural mixture
	Isotope int
}

// Bond connects two atoms by index.
type Bond struct {
	From, To int
	// Order is 1, 2 or 3; aromatic bonds carry order 1 with Aromatic set
	Order    int
	Aromatic bool
}

// Conformer is one 3D arrangement of a molecule's heavy atoms.
type Conformer struct {
	// Coords holds one xyz triple per atom, in angstroms
	Coords [][3]float64
}

// Mol is a molecule: a graph of atoms and bonds plus zero or more 3D
// conformers. The zero value is an empty molecule.
type Mol struct {
	Atoms []Atom
	Bonds []Bond
	Confs []Conformer
}

// NumAtoms returns the heavy atom count.
func (m *Mol) NumAtoms() int { return len(m.Atoms) }

// NumConfs returns the number of conformers in the ensemble.
func (m *Mol) NumConfs() int { return len(m.Confs) }

// AddAtom appends an atom and returns its index.
func (m *Mol) AddAtom(a Atom) int {
	m.Atoms = append(m.Atoms, a)
	return len(m.Atoms) - 1
}

// AddBond appends a bond between two existing atoms.
func (m *Mol) AddBond(from, to, order int, aromatic bool) {
	m.Bonds = append(m.Bonds, Bond{From: from, To: to, Order: order, Aromatic: aromatic})
}

// Adjacency returns, for each atom, the list of (neighbor index, bond index)
// pairs. The bond list order is preserved.
func (m *Mol) Adjacency() [][]Neighbor {
	adj := make([][]Neighbor, len(m.Atoms))
	for bi, b := range m.Bonds {
		adj[b.From] = append(adj[b.From], Neighbor{Atom: b.To, Bond: bi})
		adj[b.To] = append(adj[b.To], Neighbor{Atom: b.From, Bond: bi})
	}
	return adj
}

// Neighbor is one entry of an adjacency list.
type Neighbor struct {
	Atom int
	Bond int
}

// Copy returns a deep copy of the molecule, including conformers.
func (m *Mol) Copy() *Mol {
	out := &Mol{
		Atoms: append([]Atom(nil), m.Atoms...),
		Bonds: append([]Bond(nil), m.Bonds...),
	}
	for _, c := range m.Confs {
		cc := Conformer{Coords: append([][3]float64(nil), c.Coords...)}
		out.Confs = append(out.Confs, cc)
	}
	return out
}

// ClearConfs drops all conformers, keeping the topology.
func (m *Mol) ClearConfs() { m.Confs = nil }
