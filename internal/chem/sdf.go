package chem

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadSDFFirst reads the first molecule from an SD/MOL file (V2000 connection
// table) and returns it with one conformer built from the atom block
// coordinates. Implicit hydrogen counts are inferred from the bond orders.
func ReadSDFFirst(path string) (*Mol, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := readMolBlock(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return m, nil
}

func readMolBlock(r *bufio.Reader) (*Mol, error) {
	sc := bufio.NewScanner(r)

	// Three header lines precede the counts line.
	for i := 0; i < 3; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("unexpected EOF in header")
		}
	}
	if !sc.Scan() {
		return nil, fmt.Errorf("missing counts line")
	}
	counts := sc.Text()
	if len(counts) < 6 {
		return nil, fmt.Errorf("malformed counts line %q", counts)
	}
	atomCount, err := strconv.Atoi(strings.TrimSpace(counts[0:3]))
	if err != nil {
		return nil, fmt.Errorf("malformed atom count: %w", err)
	}
	bondCount, err := strconv.Atoi(strings.TrimSpace(counts[3:6]))
	if err != nil {
		return nil, fmt.Errorf("malformed bond count: %w", err)
	}

	mol := &Mol{}
	conf := Conformer{Coords: make([][3]float64, atomCount)}

	for i := 0; i < atomCount; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("unexpected EOF in atom block")
		}
		line := sc.Text()
		if len(line) < 34 {
			return nil, fmt.Errorf("short atom line %d", i+1)
		}
		x, _ := strconv.ParseFloat(strings.TrimSpace(line[0:10]), 64)
		y, _ := strconv.ParseFloat(strings.TrimSpace(line[10:20]), 64)
		z, _ := strconv.ParseFloat(strings.TrimSpace(line[20:30]), 64)
		elem := strings.TrimSpace(line[31:34])
		conf.Coords[i] = [3]float64{x, y, z}
		mol.AddAtom(Atom{Element: elem})
	}
	for i := 0; i < bondCount; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("unexpected EOF in bond block")
		}
		line := sc.Text()
		if len(line) < 9 {
			return nil, fmt.Errorf("short bond line %d", i+1)
		}
		from, _ := strconv.Atoi(strings.TrimSpace(line[0:3]))
		to, _ := strconv.Atoi(strings.TrimSpace(line[3:6]))
		order, _ := strconv.Atoi(strings.TrimSpace(line[6:9]))
		if from < 1 || from > atomCount || to < 1 || to > atomCount {
			return nil, fmt.Errorf("bond %d references atom out of range", i+1)
		}
		aromatic := order == 4
		if aromatic {
			order = 1
		}
		mol.AddBond(from-1, to-1, order, aromatic)
	}
	if err := sc.Err(); err != nil && err != io.EOF {
		return nil, err
	}

	for i := range mol.Atoms {
		if mol.Atoms[i].Element == "H" {
			continue
		}
		if aromaticBondCount(mol, i) >= 2 {
			mol.Atoms[i].Aromatic = true
		}
	}
	for i := range mol.Atoms {
		mol.Atoms[i].HCount = implicitHCount(mol, i)
	}
	mol.Confs = append(mol.Confs, conf)
	return mol, nil
}

func aromaticBondCount(m *Mol, i int) int {
	n := 0
	for _, b := range m.Bonds {
		if (b.From == i || b.To == i) && b.Aromatic {
			n++
		}
	}
	return n
}
