package chem

import (
	"fmt"
	"strings"
)

// organicSubset lists the elements that may be written without brackets.
var organicSubset = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true,
	"S": true, "F": true, "Cl": true, "Br": true, "I": true,
}

// defaultValences maps an element to its allowed valence states, smallest
// first. Implicit hydrogens fill up to the smallest state that covers the
// explicit bond order sum.
var defaultValences = map[string][]int{
	"B": {3}, "C": {4}, "N": {3, 5}, "O": {2}, "P": {3, 5},
	"S": {2, 4, 6}, "F": {1}, "Cl": {1}, "Br": {1}, "I": {1},
}

// ParseSMILES parses a SMILES string into a molecule. Implicit hydrogen
// counts are assigned for organic-subset atoms; bracket atoms carry the
// hydrogen count written in the bracket. Stereo markers are accepted and
// discarded (only topology is kept).
func ParseSMILES(s string) (*Mol, error) {
	p := &smilesParser{
		s:     s,
		mol:   &Mol{},
		prev:  -1,
		rings: make(map[int]ringOpen),
	}
	if err := p.run(); err != nil {
		return nil, fmt.Errorf("parse smiles %q: %w", s, err)
	}
	p.assignImplicitH()
	return p.mol, nil
}

type ringOpen struct {
	atom     int
	order    int
	aromatic bool
	explicit bool
}

type smilesParser struct {
	s   string
	pos int
	mol *Mol

	prev         int
	stack        []int
	rings        map[int]ringOpen
	hExplicit    []bool
	pendOrder    int // 0 means "no explicit bond"
	pendAromatic bool
	pendExplicit bool
}

func (p *smilesParser) run() error {
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return fmt.Errorf("branch before any atom at %d", p.pos)
			}
			p.stack = append(p.stack, p.prev)
			p.pos++
		case c == ')':
			if len(p.stack) == 0 {
				return fmt.Errorf("unmatched ')' at %d", p.pos)
			}
			p.prev = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			p.pos++
		case c == '-' || c == '/' || c == '\\':
			p.setBond(1, false)
			p.pos++
		case c == '=':
			p.setBond(2, false)
			p.pos++
		case c == '#':
			p.setBond(3, false)
			p.pos++
		case c == ':':
			p.setBond(1, true)
			p.pos++
		case c == '.':
			p.prev = -1
			p.clearBond()
			p.pos++
		case c >= '0' && c <= '9':
			if err := p.ringBond(int(c - '0')); err != nil {
				return err
			}
			p.pos++
		case c == '%':
			if p.pos+2 >= len(p.s) {
				return fmt.Errorf("truncated ring number at %d", p.pos)
			}
			d1, d2 := p.s[p.pos+1], p.s[p.pos+2]
			if d1 < '0' || d1 > '9' || d2 < '0' || d2 > '9' {
				return fmt.Errorf("bad ring number at %d", p.pos)
			}
			if err := p.ringBond(int(d1-'0')*10 + int(d2-'0')); err != nil {
				return err
			}
			p.pos += 3
		case c == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}
	if len(p.stack) != 0 {
		return fmt.Errorf("unclosed branch")
	}
	if len(p.rings) != 0 {
		return fmt.Errorf("unclosed ring bond")
	}
	return nil
}

func (p *smilesParser) setBond(order int, aromatic bool) {
	p.pendOrder = order
	p.pendAromatic = aromatic
	p.pendExplicit = true
}

func (p *smilesParser) clearBond() {
	p.pendOrder = 0
	p.pendAromatic = false
	p.pendExplicit = false
}

// addAtom appends the atom and bonds it to the previous one using the
// pending bond, defaulting to aromatic when both ends are aromatic.
func (p *smilesParser) addAtom(a Atom, hExplicit bool) {
	idx := p.mol.AddAtom(a)
	p.hExplicit = append(p.hExplicit, hExplicit)
	if p.prev >= 0 {
		order, aromatic := 1, false
		if p.pendExplicit {
			order, aromatic = p.pendOrder, p.pendAromatic
		} else if p.mol.Atoms[p.prev].Aromatic && a.Aromatic {
			aromatic = true
		}
		p.mol.AddBond(p.prev, idx, order, aromatic)
	}
	p.prev = idx
	p.clearBond()
}

func (p *smilesParser) ringBond(num int) error {
	if p.prev < 0 {
		return fmt.Errorf("ring bond before any atom at %d", p.pos)
	}
	open, ok := p.rings[num]
	if !ok {
		p.rings[num] = ringOpen{
			atom:     p.prev,
			order:    p.pendOrder,
			aromatic: p.pendAromatic,
			explicit: p.pendExplicit,
		}
		p.clearBond()
		return nil
	}
	delete(p.rings, num)
	order, aromatic := 1, false
	switch {
	case p.pendExplicit:
		order, aromatic = p.pendOrder, p.pendAromatic
	case open.explicit:
		order, aromatic = open.order, open.aromatic
	case p.mol.Atoms[open.atom].Aromatic && p.mol.Atoms[p.prev].Aromatic:
		aromatic = true
	}
	p.mol.AddBond(open.atom, p.prev, order, aromatic)
	p.clearBond()
	return nil
}

func (p *smilesParser) organicAtom() error {
	c := p.s[p.pos]
	// Two-letter symbols first.
	if c == 'C' && p.pos+1 < len(p.s) && p.s[p.pos+1] == 'l' {
		p.addAtom(Atom{Element: "Cl"}, false)
		p.pos += 2
		return nil
	}
	if c == 'B' && p.pos+1 < len(p.s) && p.s[p.pos+1] == 'r' {
		p.addAtom(Atom{Element: "Br"}, false)
		p.pos += 2
		return nil
	}
	switch c {
	case 'B', 'C', 'N', 'O', 'P', 'S', 'F', 'I':
		p.addAtom(Atom{Element: string(c)}, false)
	case 'b', 'c', 'n', 'o', 'p', 's':
		p.addAtom(Atom{Element: strings.ToUpper(string(c)), Aromatic: true}, false)
	default:
		return fmt.Errorf("unexpected character %q at %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *smilesParser) bracketAtom() error {
	end := strings.IndexByte(p.s[p.pos:], ']')
	if end < 0 {
		return fmt.Errorf("unclosed bracket at %d", p.pos)
	}
	body := p.s[p.pos+1 : p.pos+end]
	p.pos += end + 1

	a := Atom{}
	i := 0
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		a.Isotope = a.Isotope*10 + int(body[i]-'0')
		i++
	}
	if i >= len(body) {
		return fmt.Errorf("bracket atom missing element symbol")
	}
	// Element symbol: uppercase + optional lowercase, or a lone aromatic
	// lowercase symbol.
	if body[i] >= 'a' && body[i] <= 'z' {
		a.Element = strings.ToUpper(string(body[i]))
		a.Aromatic = true
		i++
	} else {
		sym := string(body[i])
		i++
		if i < len(body) && body[i] >= 'a' && body[i] <= 'z' && body[i] != 'h' {
			// "h" never follows a symbol inside our supported set; H is the
			// hydrogen-count marker.
			sym += string(body[i])
			i++
		}
		a.Element = sym
	}
	// Discard chirality markers.
	for i < len(body) && body[i] == '@' {
		i++
	}
	if i < len(body) && (body[i] == 'T' || body[i] == 'A') {
		// @TH1/@AL1 style classes: skip to next recognized field
		for i < len(body) && body[i] != 'H' && body[i] != '+' && body[i] != '-' {
			i++
		}
	}
	if i < len(body) && body[i] == 'H' {
		i++
		a.HCount = 1
		if i < len(body) && body[i] >= '0' && body[i] <= '9' {
			a.HCount = int(body[i] - '0')
			i++
		}
	}
	for i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		i++
		if i < len(body) && body[i] >= '0' && body[i] <= '9' {
			a.Charge += sign * int(body[i]-'0')
			i++
		} else {
			a.Charge += sign
		}
	}
	if i != len(body) {
		return fmt.Errorf("unsupported bracket atom [%s]", body)
	}
	p.addAtom(a, true)
	return nil
}

// bondOrderSum returns the explicit valence of atom i: the sum of bond
// orders, counting each aromatic bond as one plus a single extra unit for
// membership in an aromatic system.
func bondOrderSum(m *Mol, i int) int {
	sum := 0
	for _, b := range m.Bonds {
		if b.From != i && b.To != i {
			continue
		}
		if b.Aromatic {
			sum++
		} else {
			sum += b.Order
		}
	}
	if m.Atoms[i].Aromatic {
		sum++
	}
	return sum
}

// implicitHCount returns the hydrogen count a reader would infer for atom i
// from its element and bond order sum.
func implicitHCount(m *Mol, i int) int {
	vals, ok := defaultValences[m.Atoms[i].Element]
	if !ok {
		return 0
	}
	sum := bondOrderSum(m, i)
	for _, v := range vals {
		if sum <= v {
			return v - sum
		}
	}
	return 0
}

func (p *smilesParser) assignImplicitH() {
	for i := range p.mol.Atoms {
		if p.hExplicit[i] {
			continue
		}
		p.mol.Atoms[i].HCount = implicitHCount(p.mol, i)
	}
}
