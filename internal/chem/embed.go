package chem

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"
)

// EmbedOptions controls conformer embedding.
type EmbedOptions struct {
	// MaxConfs caps the ensemble size. Values below 1 are treated as 1.
	MaxConfs int
	// RMSThreshold drops conformers within this geometric RMS of an
	// already kept one.
	RMSThreshold float64
	// StrictStereo rejects molecules carrying an unassigned stereocenter
	// instead of enumerating its arrangements.
	StrictStereo bool
}

// Engine produces 3D conformer ensembles from molecular topology. It is not
// safe for concurrent use; give each worker its own Engine.
type Engine struct {
	// Log is the engine's leveled logger. Callers may adjust its threshold
	// around noisy operations.
	Log *EngineLog

	rng *rand.Rand
}

// NewEngine returns an embedding engine. A zero seed draws one from the
// clock.
func NewEngine(seed int64, zl *zap.Logger) *Engine {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var named *zap.Logger
	if zl != nil {
		named = zl.Named("embed_engine")
	}
	return &Engine{
		Log: NewEngineLog(named),
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Embed replaces mol's conformer ensemble with newly embedded geometries and
// reports whether at least one conformer was produced. Failure is a normal
// outcome (empty molecule, strict-stereo rejection, degenerate geometry) and
// is signaled by the return value, never by a panic or error.
func (e *Engine) Embed(mol *Mol, opts EmbedOptions) bool {
	if mol.NumAtoms() == 0 {
		e.Log.Warning("cannot embed molecule with no atoms")
		return false
	}
	if opts.MaxConfs < 1 {
		opts.MaxConfs = 1
	}
	if opts.StrictStereo && hasUnassignedStereocenter(mol) {
		e.Log.Warning("unassigned stereocenter rejected in strict mode")
		return false
	}

	mol.ClearConfs()
	adj := mol.Adjacency()
	// A few extra attempts beyond the cap absorb duplicates and the
	// occasional degenerate embedding.
	attempts := opts.MaxConfs * 4
	for i := 0; i < attempts && mol.NumConfs() < opts.MaxConfs; i++ {
		coords := e.embedOnce(mol, adj)
		if coords == nil {
			e.Log.Warning("embedding attempt produced degenerate geometry",
				zap.Int("attempt", i))
			continue
		}
		if isDuplicateConf(mol, coords, opts.RMSThreshold) {
			continue
		}
		mol.Confs = append(mol.Confs, Conformer{Coords: coords})
	}
	if mol.NumConfs() == 0 {
		e.Log.Warning("embedding failed", zap.Int("atoms", mol.NumAtoms()))
		return false
	}
	e.Log.Debug("embedded ensemble",
		zap.Int("conformers", mol.NumConfs()),
		zap.Int("max_confs", opts.MaxConfs))
	return true
}

// embedOnce grows coordinates over a breadth-first traversal: each atom is
// placed one bond length from its parent, pushed away from the parent's
// other neighbors, then relaxed with a short non-bonded repulsion pass.
func (e *Engine) embedOnce(mol *Mol, adj [][]Neighbor) [][3]float64 {
	n := mol.NumAtoms()
	coords := make([][3]float64, n)
	placed := make([]bool, n)

	for start := 0; start < n; start++ {
		if placed[start] {
			continue
		}
		placed[start] = true
		coords[start] = [3]float64{e.gauss() * 0.1, e.gauss() * 0.1, e.gauss() * 0.1}
		queue := []int{start}
		for len(queue) > 0 {
			a := queue[0]
			queue = queue[1:]
			for _, nb := range adj[a] {
				if placed[nb.Atom] {
					continue
				}
				placed[nb.Atom] = true
				dir := e.growthDirection(coords, adj, a)
				bl := bondLength(mol.Bonds[nb.Bond])
				coords[nb.Atom] = [3]float64{
					coords[a][0] + dir[0]*bl,
					coords[a][1] + dir[1]*bl,
					coords[a][2] + dir[2]*bl,
				}
				queue = append(queue, nb.Atom)
			}
		}
	}

	relax(coords, mol)
	for _, c := range coords {
		for _, v := range c {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil
			}
		}
	}
	return coords
}

// growthDirection picks a unit vector pointing away from the already placed
// neighbors of atom a, with random jitter so repeated embeddings differ.
func (e *Engine) growthDirection(coords [][3]float64, adj [][]Neighbor, a int) [3]float64 {
	dir := [3]float64{e.gauss(), e.gauss(), e.gauss()}
	for _, nb := range adj[a] {
		for k := 0; k < 3; k++ {
			dir[k] += 0.8 * (coords[a][k] - coords[nb.Atom][k])
		}
	}
	norm := math.Sqrt(dir[0]*dir[0] + dir[1]*dir[1] + dir[2]*dir[2])
	if norm < 1e-9 {
		return [3]float64{1, 0, 0}
	}
	return [3]float64{dir[0] / norm, dir[1] / norm, dir[2] / norm}
}

// gauss draws a standard normal variate from the engine's own source.
func (e *Engine) gauss() float64 {
	u := e.rng.Float64()*0.998 + 0.001
	return distuv.UnitNormal.Quantile(u)
}

// relax runs a few gradient steps pushing non-bonded atom pairs apart when
// they sit closer than a contact distance.
func relax(coords [][3]float64, mol *Mol) {
	const (
		steps   = 25
		contact = 2.2
		step    = 0.12
	)
	bonded := make(map[[2]int]bool, len(mol.Bonds))
	for _, b := range mol.Bonds {
		bonded[[2]int{b.From, b.To}] = true
		bonded[[2]int{b.To, b.From}] = true
	}
	n := len(coords)
	for s := 0; s < steps; s++ {
		moved := false
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if bonded[[2]int{i, j}] {
					continue
				}
				dx := coords[j][0] - coords[i][0]
				dy := coords[j][1] - coords[i][1]
				dz := coords[j][2] - coords[i][2]
				d := math.Sqrt(dx*dx + dy*dy + dz*dz)
				if d >= contact {
					continue
				}
				if d < 1e-6 {
					dx, dy, dz, d = 1e-3, 0, 0, 1e-3
				}
				push := step * (contact - d) / d
				coords[i][0] -= dx * push / 2
				coords[i][1] -= dy * push / 2
				coords[i][2] -= dz * push / 2
				coords[j][0] += dx * push / 2
				coords[j][1] += dy * push / 2
				coords[j][2] += dz * push / 2
				moved = true
			}
		}
		if !moved {
			break
		}
	}
}

func bondLength(b Bond) float64 {
	switch {
	case b.Aromatic:
		return 1.40
	case b.Order == 2:
		return 1.34
	case b.Order == 3:
		return 1.20
	default:
		return 1.54
	}
}

// isDuplicateConf reports whether coords is within rms of an existing
// conformer. Conformers are compared after centering, without rotational
// fitting.
func isDuplicateConf(mol *Mol, coords [][3]float64, rms float64) bool {
	if rms <= 0 {
		return false
	}
	centered := centerCoords(coords)
	for _, c := range mol.Confs {
		if rmsDistance(centered, centerCoords(c.Coords)) < rms {
			return true
		}
	}
	return false
}

func centerCoords(coords [][3]float64) [][3]float64 {
	var cx, cy, cz float64
	for _, c := range coords {
		cx += c[0]
		cy += c[1]
		cz += c[2]
	}
	n := float64(len(coords))
	out := make([][3]float64, len(coords))
	for i, c := range coords {
		out[i] = [3]float64{c[0] - cx/n, c[1] - cy/n, c[2] - cz/n}
	}
	return out
}

func rmsDistance(a, b [][3]float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	sum := 0.0
	for i := range a {
		dx := a[i][0] - b[i][0]
		dy := a[i][1] - b[i][1]
		dz := a[i][2] - b[i][2]
		sum += dx*dx + dy*dy + dz*dz
	}
	return math.Sqrt(sum / float64(len(a)))
}

// hasUnassignedStereocenter reports a tetravalent atom whose four neighbor
// environments are all distinct. Stereo assignments are not modeled, so any
// such center is "unassigned".
func hasUnassignedStereocenter(mol *Mol) bool {
	adj := mol.Adjacency()
	ranks := symmetryRanks(mol)
	for i := range mol.Atoms {
		if len(adj[i]) != 4 {
			continue
		}
		seen := map[int]bool{}
		distinct := true
		for _, nb := range adj[i] {
			if seen[ranks[nb.Atom]] {
				distinct = false
				break
			}
			seen[ranks[nb.Atom]] = true
		}
		if distinct {
			return true
		}
	}
	return false
}
