package docking

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"github.com/copyleftdev/molscore/internal/chem"
)

// ReturnCode is the docking engine's status signal. Anything other than
// ReturnCodeSuccess means the molecule could not be scored.
type ReturnCode int

const (
	ReturnCodeSuccess ReturnCode = iota
	ReturnCodeConformerGenError
	ReturnCodeNoValidPose
)

func (rc ReturnCode) String() string {
	switch rc {
	case ReturnCodeSuccess:
		return "success"
	case ReturnCodeConformerGenError:
		return "conformer generation error"
	case ReturnCodeNoValidPose:
		return "no valid pose"
	default:
		return fmt.Sprintf("return code %d", int(rc))
	}
}

// ScoreMethod names a pose scoring function.
type ScoreMethod string

// ScoreMethodGaussPocket is the default: Gaussian wells between ligand and
// pocket atoms with a steric clash penalty. Lower is better.
const ScoreMethodGaussPocket ScoreMethod = "gausspocket"

// DockOptions configures the engine.
type DockOptions struct {
	ScoreMethod ScoreMethod
	// Orientations tried per conformer.
	Orientations int
}

// DefaultDockOptions returns the engine defaults.
func DefaultDockOptions() DockOptions {
	return DockOptions{ScoreMethod: ScoreMethodGaussPocket, Orientations: 12}
}

// Pose is a docked ligand geometry with its tag/value annotations, the
// channel the best score travels back through.
type Pose struct {
	Coords [][3]float64
	Score  float64

	sd map[string]string
}

// SetSD stores an annotation on the pose.
func (p *Pose) SetSD(tag, value string) {
	if p.sd == nil {
		p.sd = make(map[string]string)
	}
	p.sd[tag] = value
}

// SD returns the annotation stored under tag.
func (p *Pose) SD(tag string) (string, bool) {
	v, ok := p.sd[tag]
	return v, ok
}

// Dock is a docking engine bound to one receptor. It is initialized once per
// evaluator and reused for every call; it is not safe for concurrent use.
type Dock struct {
	du   *DesignUnit
	opts DockOptions
	rng  *rand.Rand
}

// NewDock binds a docking engine to a design unit.
func NewDock(du *DesignUnit, opts DockOptions) *Dock {
	if opts.Orientations < 1 {
		opts.Orientations = 1
	}
	return &Dock{du: du, opts: opts, rng: rand.New(rand.NewSource(1))}
}

// Options returns the engine options.
func (d *Dock) Options() DockOptions { return d.opts }

// ScoreMethodName returns the tag under which SetSDScore records the score.
func (d *Dock) ScoreMethodName() string { return string(d.opts.ScoreMethod) }

// SetSDScore writes the pose's docking score into its annotations under tag.
func (d *Dock) SetSDScore(p *Pose, tag string) {
	p.SetSD(tag, strconv.FormatFloat(p.Score, 'f', 4, 64))
}

// DockMultiConformer docks every conformer of mc in a set of sampled
// orientations inside the pocket and returns the best-scoring pose. The
// ensemble must already be embedded; an empty ensemble is a conformer
// generation error.
func (d *Dock) DockMultiConformer(mc *chem.Mol) (*Pose, ReturnCode) {
	if mc.NumConfs() == 0 {
		return nil, ReturnCodeConformerGenError
	}
	rec := d.du.Receptor

	var best *Pose
	for c := 0; c < mc.NumConfs(); c++ {
		centered := centerOnPocket(mc.Confs[c].Coords, rec.Center)
		for o := 0; o < d.opts.Orientations; o++ {
			rot := d.randomRotation()
			coords := rotateAbout(centered, rec.Center, rot)
			score := d.scorePose(mc, coords)
			if math.IsNaN(score) || math.IsInf(score, 0) {
				continue
			}
			if best == nil || score < best.Score {
				best = &Pose{Coords: coords, Score: score}
			}
		}
	}
	if best == nil {
		return nil, ReturnCodeNoValidPose
	}
	return best, ReturnCodeSuccess
}

// scorePose sums pairwise ligand-receptor terms: a Gaussian attraction well
// around the contact distance, deepened for donor/acceptor pairings, a steric
// clash penalty inside it, and a confinement penalty for ligand atoms
// leaving the pocket. Lower is better; good poses score negative.
func (d *Dock) scorePose(mol *chem.Mol, coords [][3]float64) float64 {
	rec := d.du.Receptor
	score := 0.0
	for i, a := range mol.Atoms {
		p := coords[i]
		polar := a.Element == "N" || a.Element == "O"
		donor := polar && a.HCount > 0
		for _, ra := range rec.Atoms {
			dx := p[0] - ra.Pos[0]
			dy := p[1] - ra.Pos[1]
			dz := p[2] - ra.Pos[2]
			dist := math.Sqrt(dx*dx + dy*dy + dz*dz)

			const contact = 3.3
			depth := 0.35
			if (donor && ra.Acceptor) || (polar && ra.Donor) {
				depth = 1.2
			}
			dd := dist - contact
			score -= depth * math.Exp(-dd*dd/0.8)
			if dist < 2.4 {
				score += 4.0 * (2.4 - dist)
			}
		}
		cx := p[0] - rec.Center[0]
		cy := p[1] - rec.Center[1]
		cz := p[2] - rec.Center[2]
		if out := math.Sqrt(cx*cx+cy*cy+cz*cz) - rec.Radius; out > 0 {
			score += 0.5 * out
		}
	}
	return score
}

// centerOnPocket translates the conformer so its centroid sits at the pocket
// center.
func centerOnPocket(coords [][3]float64, center [3]float64) [][3]float64 {
	var cx, cy, cz float64
	for _, c := range coords {
		cx += c[0]
		cy += c[1]
		cz += c[2]
	}
	n := float64(len(coords))
	out := make([][3]float64, len(coords))
	for i, c := range coords {
		out[i] = [3]float64{
			c[0] - cx/n + center[0],
			c[1] - cy/n + center[1],
			c[2] - cz/n + center[2],
		}
	}
	return out
}

// randomRotation draws a uniform rotation matrix from a random unit
// quaternion.
func (d *Dock) randomRotation() [3][3]float64 {
	u1, u2, u3 := d.rng.Float64(), d.rng.Float64(), d.rng.Float64()
	w := math.Sqrt(1-u1) * math.Sin(2*math.Pi*u2)
	x := math.Sqrt(1-u1) * math.Cos(2*math.Pi*u2)
	y := math.Sqrt(u1) * math.Sin(2*math.Pi*u3)
	z := math.Sqrt(u1) * math.Cos(2*math.Pi*u3)
	return [3][3]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

func rotateAbout(coords [][3]float64, center [3]float64, rot [3][3]float64) [][3]float64 {
	out := make([][3]float64, len(coords))
	for i, c := range coords {
		v := [3]float64{c[0] - center[0], c[1] - center[1], c[2] - center[2]}
		for k := 0; k < 3; k++ {
			out[i][k] = center[k] + rot[k][0]*v[0] + rot[k][1]*v[1] + rot[k][2]*v[2]
		}
	}
	return out
}
