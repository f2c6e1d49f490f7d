package permutation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNoPoints is returned when a hemisphere has no coordinates.
var ErrNoPoints = errors.New("no coordinates to rotate")

// ErrNonFinite is returned when a coordinate is NaN or infinite.
var ErrNonFinite = errors.New("non-finite coordinate")

// Permutations holds one index permutation per rotation. Permuting a map x
// by perm gives x[perm[0]], x[perm[1]], ...
type Permutations [][]int

// Len returns the length of each permutation.
func (p Permutations) Len() int {
	if len(p) == 0 {
		return 0
	}
	return len(p[0])
}

// Validate checks that every entry is a permutation of 0..n-1.
func (p Permutations) Validate(n int) error {
	seen := make([]bool, n)
	for k, perm := range p {
		if len(perm) != n {
			return fmt.Errorf("permutation %d has length %d, want %d", k, len(perm), n)
		}
		for i := range seen {
			seen[i] = false
		}
		for _, j := range perm {
			if j < 0 || j >= n || seen[j] {
				return fmt.Errorf("permutation %d is not a permutation of %d indices", k, n)
			}
			seen[j] = true
		}
	}
	return nil
}

// Apply returns x permuted by perm.
func Apply(x []float64, perm []int) []float64 {
	out := make([]float64, len(perm))
	for i, j := range perm {
		out[i] = x[j]
	}
	return out
}

// Options controls permutation generation.
type Options struct {
	// N is the number of permutations.
	N    int
	Seed int64
	// Workers defaults to runtime.NumCPU.
	Workers int
	// Progress, when set, is called after every permutation. It may be
	// called from several goroutines.
	Progress func(done, total int)
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// subSeeds draws one seed per permutation from the master seed.
func subSeeds(seed int64, n int) []int64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]int64, n)
	for i := range out {
		out[i] = rng.Int63()
	}
	return out
}

// generate runs one job per permutation on the worker pool.
func generate(ctx context.Context, opts Options, job func(rng *rand.Rand) ([]int, error)) (Permutations, error) {
	if opts.N <= 0 {
		return nil, fmt.Errorf("number of permutations must be positive, got %d", opts.N)
	}
	seeds := subSeeds(opts.Seed, opts.N)
	out := make(Permutations, opts.N)

	var done atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for k := range out {
		k := k
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perm, err := job(rand.New(rand.NewSource(seeds[k])))
			if err != nil {
				return err
			}
			out[k] = perm
			if opts.Progress != nil {
				opts.Progress(int(done.Add(1)), opts.N)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// RotateParcellation spins parcel centroids on the sphere. Each rotation is
// turned into a permutation by matching every original centroid to a
// rotated one with a minimum total distance assignment, separately per
// hemisphere. The result indexes lh followed by rh.
func RotateParcellation(ctx context.Context, lh, rh []r3.Vec, opts Options) (Permutations, error) {
	if err := checkPoints(lh, rh); err != nil {
		return nil, err
	}
	return generate(ctx, opts, func(rng *rand.Rand) ([]int, error) {
		rot := RandomRotation(rng)
		left, err := assign(distances(lh, Rotate(lh, rot)))
		if err != nil {
			return nil, err
		}
		right, err := assign(distances(rh, Rotate(rh, Mirrored(rot))))
		if err != nil {
			return nil, err
		}
		perm := make([]int, 0, len(lh)+len(rh))
		perm = append(perm, left...)
		for _, j := range right {
			perm = append(perm, j+len(lh))
		}
		return perm, nil
	})
}

// checkPoints rejects empty hemispheres and non-finite coordinates.
func checkPoints(lh, rh []r3.Vec) error {
	if len(lh) == 0 || len(rh) == 0 {
		return ErrNoPoints
	}
	for _, hemi := range []struct {
		name   string
		points []r3.Vec
	}{{"left", lh}, {"right", rh}} {
		for i, p := range hemi.points {
			if s := p.X + p.Y + p.Z; math.IsNaN(s) || math.IsInf(s, 0) {
				return fmt.Errorf("%w: %s hemisphere point %d", ErrNonFinite, hemi.name, i)
			}
		}
	}
	return nil
}

// nearest finds the closest original vertex to a query point.
type nearest struct {
	tree  *kdtree.Tree
	index map[[3]float64]int
}

func newNearest(points []r3.Vec) *nearest {
	pts := make(kdtree.Points, len(points))
	index := make(map[[3]float64]int, len(points))
	for i, p := range points {
		pts[i] = kdtree.Point{p.X, p.Y, p.Z}
		index[[3]float64{p.X, p.Y, p.Z}] = i
	}
	// kdtree.New reorders pts, so vertices are recovered through index.
	return &nearest{tree: kdtree.New(pts, false), index: index}
}

func (n *nearest) find(p r3.Vec) int {
	got, _ := n.tree.Nearest(kdtree.Point{p.X, p.Y, p.Z})
	q := got.(kdtree.Point)
	return n.index[[3]float64{q[0], q[1], q[2]}]
}

// SpinVertices spins vertex-wise maps: each rotated vertex takes the index
// of the nearest original vertex. The result indexes lh followed by rh and
// is not a strict permutation, since two rotated vertices can share a
// neighbour.
func SpinVertices(ctx context.Context, lh, rh []r3.Vec, opts Options) (Permutations, error) {
	if err := checkPoints(lh, rh); err != nil {
		return nil, err
	}
	lt, rt := newNearest(lh), newNearest(rh)
	return generate(ctx, opts, func(rng *rand.Rand) ([]int, error) {
		rot := RandomRotation(rng)
		perm := make([]int, 0, len(lh)+len(rh))
		for _, hemi := range []struct {
			points []r3.Vec
			tree   *nearest
			rot    mat.Matrix
			offset int
		}{
			{lh, lt, rot, 0},
			{rh, rt, Mirrored(rot), len(lh)},
		} {
			for _, p := range Rotate(hemi.points, hemi.rot) {
				perm = append(perm, hemi.offset+hemi.tree.find(p))
			}
		}
		return perm, nil
	})
}

// Shuffle draws plain random permutations of n indices.
func Shuffle(ctx context.Context, n int, opts Options) (Permutations, error) {
	if n <= 0 {
		return nil, ErrNoPoints
	}
	return generate(ctx, opts, func(rng *rand.Rand) ([]int, error) {
		return rng.Perm(n), nil
	})
}
