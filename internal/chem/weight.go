package chem

// atomicMasses holds standard atomic weights (IUPAC 2021, rounded) for the
// elements the SMILES parser accepts.
var atomicMasses = map[string]float64{
	"H":  1.008,
	"B":  10.81,
	"C":  12.011,
	"N":  14.007,
	"O":  15.999,
	"F":  18.998,
	"P":  30.974,
	"S":  32.06,
	"Cl": 35.45,
	"Br": 79.904,
	"I":  126.904,
}

// MolWeight returns the average molecular weight of the molecule, implicit
// hydrogens included.
func MolWeight(m *Mol) float64 {
	w := 0.0
	for _, a := range m.Atoms {
		w += atomicMasses[a.Element]
		w += float64(a.HCount) * atomicMasses["H"]
	}
	return w
}
