package chem

import (
	"encoding/binary"
	"hash/fnv"
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// Fingerprint defaults. Radius 2 matches the usual Morgan/ECFP4 setting.
const (
	FingerprintRadius = 2
	FingerprintBits   = 2048
)

// MorganFingerprint computes a circular (Morgan-type) fingerprint: each atom
// contributes one hashed invariant per radius shell, folded into a fixed-size
// bit vector. Identical topologies produce identical fingerprints regardless
// of atom order.
func MorganFingerprint(m *Mol, radius, nbits uint) *bitset.BitSet {
	fp := bitset.New(nbits)
	n := m.NumAtoms()
	if n == 0 {
		return fp
	}
	adj := m.Adjacency()

	inv := make([]uint64, n)
	for i, a := range m.Atoms {
		ar := uint64(0)
		if a.Aromatic {
			ar = 1
		}
		inv[i] = hashInts(
			uint64(atomicNumbers[a.Element]),
			uint64(len(adj[i])),
			uint64(int64(a.Charge)+16),
			uint64(a.HCount),
			ar,
		)
	}

	for r := uint(0); r <= radius; r++ {
		for _, v := range inv {
			fp.Set(uint(v % uint64(nbits)))
		}
		if r == radius {
			break
		}
		next := make([]uint64, n)
		for i := range inv {
			env := make([]uint64, 0, len(adj[i]))
			for _, nb := range adj[i] {
				b := m.Bonds[nb.Bond]
				ord := uint64(b.Order)
				if b.Aromatic {
					ord = 4
				}
				env = append(env, hashInts(ord, inv[nb.Atom]))
			}
			sort.Slice(env, func(a, b int) bool { return env[a] < env[b] })
			next[i] = hashInts(append([]uint64{uint64(r) + 1, inv[i]}, env...)...)
		}
		inv = next
	}
	return fp
}

// Tanimoto returns the Tanimoto coefficient between two bit vectors,
// |A∩B| / |A∪B|, in [0,1]. Two empty fingerprints count as identical.
func Tanimoto(a, b *bitset.BitSet) float64 {
	union := a.UnionCardinality(b)
	if union == 0 {
		return 1.0
	}
	return float64(a.IntersectionCardinality(b)) / float64(union)
}

func hashInts(vals ...uint64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range vals {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	return h.Sum64()
}
