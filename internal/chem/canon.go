package chem

import (
	"fmt"
	"sort"
	"strings"
)

// atomicNumbers is used for canonical ordering and for the mass table.
var atomicNumbers = map[string]int{
	"H": 1, "B": 5, "C": 6, "N": 7, "O": 8, "F": 9,
	"P": 15, "S": 16, "Cl": 17, "Br": 35, "I": 53,
}

// canonicalRanks assigns each atom a unique rank in [0, n) that is invariant
// under input atom reordering. Ranks are produced by iterative refinement of
// neighborhood invariants (Morgan-style) with deterministic tie breaking:
// the partition is refined until stable, then the first remaining
// non-singleton cell is split at its lexicographically smallest member and
// refinement repeats.
func canonicalRanks(m *Mol) []int {
	ranks, refine, prio := refinedRanks(m)
	if ranks == nil {
		return nil
	}
	mark := 1
	for {
		cell := firstTiedCell(ranks())
		if cell < 0 {
			return ranks()
		}
		// Smallest atom index in the tied cell wins the mark.
		for i, r := range ranks() {
			if r == cell {
				prio[i] = mark
				mark++
				break
			}
		}
		refine()
	}
}

// symmetryRanks returns refinement-only ranks: topologically equivalent atoms
// share a rank. Used for stereocenter detection.
func symmetryRanks(m *Mol) []int {
	ranks, _, _ := refinedRanks(m)
	if ranks == nil {
		return nil
	}
	return ranks()
}

// refinedRanks runs iterative neighborhood refinement and returns accessors
// for the current ranks, a re-refine hook, and the tie-break priority slice.
func refinedRanks(m *Mol) (func() []int, func(), []int) {
	n := len(m.Atoms)
	if n == 0 {
		return nil, nil, nil
	}
	adj := m.Adjacency()

	// prio holds artificial tie-break marks, 0 for unmarked atoms.
	prio := make([]int, n)
	ranks := initialRanks(m, prio)

	refine := func() {
		for {
			keys := make([][]int, n)
			for i := range keys {
				key := []int{ranks[i], prio[i]}
				nbr := make([]int, 0, len(adj[i]))
				for _, nb := range adj[i] {
					b := m.Bonds[nb.Bond]
					ord := b.Order
					if b.Aromatic {
						ord = 4
					}
					nbr = append(nbr, ord*(n+1)+ranks[nb.Atom])
				}
				sort.Ints(nbr)
				keys[i] = append(key, nbr...)
			}
			next := rankByKeys(keys)
			if equalInts(next, ranks) {
				return
			}
			ranks = next
		}
	}
	refine()
	return func() []int { return ranks }, refine, prio
}

func initialRanks(m *Mol, prio []int) []int {
	n := len(m.Atoms)
	adj := m.Adjacency()
	keys := make([][]int, n)
	for i, a := range m.Atoms {
		ar := 0
		if a.Aromatic {
			ar = 1
		}
		keys[i] = []int{
			len(adj[i]),
			atomicNumbers[a.Element],
			a.Charge,
			a.HCount,
			ar,
			a.Isotope,
			prio[i],
		}
	}
	return rankByKeys(keys)
}

// rankByKeys converts per-atom integer keys into dense ranks.
func rankByKeys(keys [][]int) []int {
	n := len(keys)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return lessInts(keys[order[a]], keys[order[b]])
	})
	ranks := make([]int, n)
	r := 0
	for i, idx := range order {
		if i > 0 && lessInts(keys[order[i-1]], keys[idx]) {
			r++
		}
		ranks[idx] = r
	}
	return ranks
}

func lessInts(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// firstTiedCell returns the smallest rank shared by more than one atom, or
// -1 when all ranks are unique.
func firstTiedCell(ranks []int) int {
	counts := make(map[int]int, len(ranks))
	for _, r := range ranks {
		counts[r]++
	}
	best := -1
	for _, r := range ranks {
		if counts[r] > 1 && (best < 0 || r < best) {
			best = r
		}
	}
	return best
}

// CanonicalSMILES writes the molecule as a canonical SMILES string. Two
// molecules with the same topology produce identical strings regardless of
// input atom order; 3D coordinates are ignored. The string is the stable
// identity used for score caching and table lookup.
func CanonicalSMILES(m *Mol) string {
	if m.NumAtoms() == 0 {
		return ""
	}
	w := &smilesWriter{
		m:         m,
		adj:       m.Adjacency(),
		ranks:     canonicalRanks(m),
		visited:   make([]bool, m.NumAtoms()),
		treeBond:  make([]bool, len(m.Bonds)),
		ringDigit: make(map[int]int),
	}
	first := true
	for {
		root := -1
		for i := range w.visited {
			if !w.visited[i] && (root < 0 || w.ranks[i] < w.ranks[root]) {
				root = i
			}
		}
		if root < 0 {
			break
		}
		if !first {
			w.sb.WriteByte('.')
		}
		first = false
		w.markTree(root, -1)
		w.emit(root, -1)
	}
	return w.sb.String()
}

// MustParseSMILES parses s and panics on error. Intended for tests and
// static reference data.
func MustParseSMILES(s string) *Mol {
	m, err := ParseSMILES(s)
	if err != nil {
		panic(err)
	}
	return m
}

type smilesWriter struct {
	m         *Mol
	adj       [][]Neighbor
	ranks     []int
	visited   []bool
	treeBond  []bool
	ringDigit map[int]int
	sb        strings.Builder
}

// orderedNeighbors returns the adjacency list of a sorted by canonical rank
// of the far atom.
func (w *smilesWriter) orderedNeighbors(a int) []Neighbor {
	nbrs := append([]Neighbor(nil), w.adj[a]...)
	sort.Slice(nbrs, func(i, j int) bool {
		return w.ranks[nbrs[i].Atom] < w.ranks[nbrs[j].Atom]
	})
	return nbrs
}

// markTree performs the canonical DFS once, marking tree bonds. Bonds left
// unmarked within the visited component are ring closures.
func (w *smilesWriter) markTree(a, fromBond int) {
	w.visited[a] = true
	for _, nb := range w.orderedNeighbors(a) {
		if nb.Bond == fromBond || w.visited[nb.Atom] {
			continue
		}
		w.treeBond[nb.Bond] = true
		w.markTree(nb.Atom, nb.Bond)
	}
}

// emit repeats the canonical DFS, writing atoms, branches, and ring digits.
func (w *smilesWriter) emit(a, fromBond int) {
	w.writeAtom(a)

	// Ring closures attached to this atom, far end in rank order.
	for _, nb := range w.orderedNeighbors(a) {
		if w.treeBond[nb.Bond] || nb.Bond == fromBond {
			continue
		}
		d, open := w.ringDigit[nb.Bond]
		if !open {
			d = w.allocDigit()
			w.ringDigit[nb.Bond] = d
			w.writeBondSymbol(nb.Bond)
		}
		if d > 9 {
			fmt.Fprintf(&w.sb, "%%%02d", d)
		} else {
			fmt.Fprintf(&w.sb, "%d", d)
		}
	}

	var children []Neighbor
	for _, nb := range w.orderedNeighbors(a) {
		if nb.Bond != fromBond && w.treeBond[nb.Bond] {
			children = append(children, nb)
		}
	}
	for i, nb := range children {
		last := i == len(children)-1
		if !last {
			w.sb.WriteByte('(')
		}
		w.writeBondSymbol(nb.Bond)
		w.emit(nb.Atom, nb.Bond)
		if !last {
			w.sb.WriteByte(')')
		}
	}
}

func (w *smilesWriter) allocDigit() int {
	used := make(map[int]bool, len(w.ringDigit))
	for _, d := range w.ringDigit {
		used[d] = true
	}
	for d := 1; ; d++ {
		if !used[d] {
			return d
		}
	}
}

func (w *smilesWriter) writeBondSymbol(bond int) {
	b := w.m.Bonds[bond]
	if b.Aromatic {
		return
	}
	switch b.Order {
	case 2:
		w.sb.WriteByte('=')
	case 3:
		w.sb.WriteByte('#')
	default:
		// An explicit single bond keeps two aromatic atoms from reading
		// back as an aromatic bond.
		if w.m.Atoms[b.From].Aromatic && w.m.Atoms[b.To].Aromatic {
			w.sb.WriteByte('-')
		}
	}
}

func (w *smilesWriter) writeAtom(i int) {
	a := w.m.Atoms[i]
	sym := a.Element
	if a.Aromatic {
		sym = strings.ToLower(sym)
	}
	needBracket := a.Charge != 0 || a.Isotope != 0 || !organicSubset[a.Element] ||
		a.HCount != implicitHCount(w.m, i)
	if !needBracket {
		w.sb.WriteString(sym)
		return
	}
	w.sb.WriteByte('[')
	if a.Isotope != 0 {
		fmt.Fprintf(&w.sb, "%d", a.Isotope)
	}
	w.sb.WriteString(sym)
	switch {
	case a.HCount == 1:
		w.sb.WriteByte('H')
	case a.HCount > 1:
		fmt.Fprintf(&w.sb, "H%d", a.HCount)
	}
	switch {
	case a.Charge == 1:
		w.sb.WriteByte('+')
	case a.Charge == -1:
		w.sb.WriteByte('-')
	case a.Charge > 1:
		fmt.Fprintf(&w.sb, "+%d", a.Charge)
	case a.Charge < -1:
		fmt.Fprintf(&w.sb, "-%d", -a.Charge)
	}
	w.sb.WriteByte(']')
}
