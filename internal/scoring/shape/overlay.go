// Package shape implements the ROCS-style shape-overlay evaluator: candidate
// conformers are aligned onto a fixed 3D reference and scored by the
// Tanimoto combo of Gaussian volume overlap and pharmacophore feature
// overlap.
package shape

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/molscore/internal/chem"
)

// Gaussian atom representation constants. kappa and the amplitude follow
// the usual hard-sphere-matched Gaussian volume parametrization.
const (
	gaussKappa = 2.41798793102
	gaussAmp   = 2.7
)

// vdwRadii holds van der Waals radii in angstroms for the supported
// elements.
var vdwRadii = map[string]float64{
	"H": 1.20, "B": 1.92, "C": 1.70, "N": 1.55, "O": 1.52, "F": 1.47,
	"P": 1.80, "S": 1.80, "Cl": 1.75, "Br": 1.85, "I": 1.98,
}

func vdwRadius(element string) float64 {
	if r, ok := vdwRadii[element]; ok {
		return r
	}
	return 1.70
}

// featureKind is a pharmacophore feature class used for the color term.
type featureKind int

const (
	featureDonor featureKind = iota
	featureAcceptor
	featureAromatic
)

type featurePoint struct {
	kind featureKind
	pos  [3]float64
}

// overlapMol is a conformer prepared for overlap scoring: coordinates
// centered and rotated into the principal-axis frame, with per-atom Gaussian
// exponents and the feature points riding along.
type overlapMol struct {
	coords   [][3]float64
	alpha    []float64
	features []featurePoint
	selfVol  float64
	selfCol  float64
}

// prepOverlap builds the overlap representation for one conformer of mol.
func prepOverlap(mol *chem.Mol, conf int) *overlapMol {
	coords := principalFrame(mol.Confs[conf].Coords)
	om := &overlapMol{
		coords: coords,
		alpha:  make([]float64, len(coords)),
	}
	for i, a := range mol.Atoms {
		r := vdwRadius(a.Element)
		om.alpha[i] = gaussKappa / (r * r)
	}
	for i, a := range mol.Atoms {
		switch {
		case (a.Element == "N" || a.Element == "O") && a.HCount > 0:
			om.features = append(om.features, featurePoint{featureDonor, coords[i]})
			om.features = append(om.features, featurePoint{featureAcceptor, coords[i]})
		case a.Element == "N" || a.Element == "O":
			om.features = append(om.features, featurePoint{featureAcceptor, coords[i]})
		}
		if a.Aromatic {
			om.features = append(om.features, featurePoint{featureAromatic, coords[i]})
		}
	}
	om.selfVol = volumeOverlap(om, om, identityFlip)
	om.selfCol = colorOverlap(om, om, identityFlip)
	return om
}

// principalFrame centers the coordinates and rotates them so the covariance
// principal axes align with x, y, z (largest spread on x).
func principalFrame(coords [][3]float64) [][3]float64 {
	n := len(coords)
	centered := make([][3]float64, n)
	var cx, cy, cz float64
	for _, c := range coords {
		cx += c[0]
		cy += c[1]
		cz += c[2]
	}
	fx, fy, fz := cx/float64(n), cy/float64(n), cz/float64(n)
	for i, c := range coords {
		centered[i] = [3]float64{c[0] - fx, c[1] - fy, c[2] - fz}
	}
	if n < 2 {
		return centered
	}

	cov := mat.NewSymDense(3, nil)
	for a := 0; a < 3; a++ {
		for b := a; b < 3; b++ {
			s := 0.0
			for _, c := range centered {
				s += c[a] * c[b]
			}
			cov.SetSym(a, b, s/float64(n))
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return centered
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	vals := eig.Values(nil)
	// EigenSym orders eigenvalues ascending; we want the dominant axis
	// first.
	order := [3]int{2, 1, 0}
	if vals[0] > vals[2] {
		order = [3]int{0, 1, 2}
	}

	out := make([][3]float64, n)
	for i, c := range centered {
		for k, col := range order {
			out[i][k] = c[0]*vecs.At(0, col) + c[1]*vecs.At(1, col) + c[2]*vecs.At(2, col)
		}
	}
	return out
}

// flip is one of the four proper rotations that keep the principal axes
// fixed. The axis alignment leaves a sign ambiguity per axis; trying all
// four covers it.
type flip [3]float64

var identityFlip = flip{1, 1, 1}

var allFlips = []flip{
	{1, 1, 1},
	{1, -1, -1},
	{-1, 1, -1},
	{-1, -1, 1},
}

func applyFlip(p [3]float64, f flip) [3]float64 {
	return [3]float64{p[0] * f[0], p[1] * f[1], p[2] * f[2]}
}

// volumeOverlap computes the Gaussian volume overlap integral between a and
// b with the flip applied to b's coordinates.
func volumeOverlap(a, b *overlapMol, f flip) float64 {
	total := 0.0
	for i, pi := range a.coords {
		ai := a.alpha[i]
		for j, pj := range b.coords {
			aj := b.alpha[j]
			q := applyFlip(pj, f)
			dx := pi[0] - q[0]
			dy := pi[1] - q[1]
			dz := pi[2] - q[2]
			d2 := dx*dx + dy*dy + dz*dz
			s := ai + aj
			total += gaussAmp * gaussAmp *
				math.Exp(-ai*aj*d2/s) * math.Pow(math.Pi/s, 1.5)
		}
	}
	return total
}

// colorOverlap is the feature-space analog of volumeOverlap: only matching
// feature kinds contribute, with a fixed exponent.
func colorOverlap(a, b *overlapMol, f flip) float64 {
	const alpha = 1.0
	total := 0.0
	for _, fa := range a.features {
		for _, fb := range b.features {
			if fa.kind != fb.kind {
				continue
			}
			q := applyFlip(fb.pos, f)
			dx := fa.pos[0] - q[0]
			dy := fa.pos[1] - q[1]
			dz := fa.pos[2] - q[2]
			d2 := dx*dx + dy*dy + dz*dz
			total += gaussAmp * gaussAmp *
				math.Exp(-alpha*d2/2) * math.Pow(math.Pi/(2*alpha), 1.5)
		}
	}
	return total
}

// comboTanimoto scores one prepared fit conformer against the reference:
// shape Tanimoto plus color Tanimoto, each in [0,1], best over the four
// axis flips. Flips are selected on the combined score.
func comboTanimoto(ref, fit *overlapMol) float64 {
	best := 0.0
	for _, f := range allFlips {
		vab := volumeOverlap(ref, fit, f)
		shape := tanimoto(vab, ref.selfVol, fit.selfVol)
		color := 0.0
		if ref.selfCol > 0 && fit.selfCol > 0 {
			cab := colorOverlap(ref, fit, f)
			color = tanimoto(cab, ref.selfCol, fit.selfCol)
		}
		if combo := shape + color; combo > best {
			best = combo
		}
	}
	return best
}

func tanimoto(vab, vaa, vbb float64) float64 {
	den := vaa + vbb - vab
	if den <= 0 {
		return 0
	}
	t := vab / den
	if t > 1 {
		t = 1
	}
	if t < 0 {
		t = 0
	}
	return t
}
