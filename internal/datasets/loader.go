package datasets

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/blackwell-systems/enigma/internal/log"
	"github.com/blackwell-systems/enigma/internal/mesh"
	"github.com/blackwell-systems/enigma/internal/parcellation"
)

// DefaultCacheSize is the number of parsed files kept in memory.
const DefaultCacheSize = 64

// Loader reads files below a data root.
type Loader struct {
	root  string
	cache *lru.Cache[string, any]
}

// New creates a Loader for root. cacheSize <= 0 selects DefaultCacheSize.
func New(root string, cacheSize int) (*Loader, error) {
	if root == "" {
		return nil, fmt.Errorf("data root cannot be empty")
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, any](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset cache: %w", err)
	}
	return &Loader{root: root, cache: cache}, nil
}

// Root returns the data directory.
func (l *Loader) Root() string {
	return l.root
}

// Path joins parts below the data root.
func (l *Loader) Path(parts ...string) string {
	return filepath.Join(append([]string{l.root}, parts...)...)
}

// cached returns the parsed form of path, parsing it with parse on a miss.
// Entries are keyed by modification time and size so edited files are
// re-read.
func (l *Loader) cached(path string, parse func(string) (any, error)) (any, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	key := fmt.Sprintf("%s|%d|%d", path, info.ModTime().UnixNano(), info.Size())
	if v, ok := l.cache.Get(key); ok {
		log.Debugf("dataset cache hit: %s", path)
		return v, nil
	}
	v, err := parse(path)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, v)
	return v, nil
}

func (l *Loader) floats(path string) ([]float64, error) {
	v, err := l.cached(path, func(p string) (any, error) {
		rows, err := readLines(p)
		if err != nil {
			return nil, err
		}
		return parseFloats(p, rows)
	})
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), v.([]float64)...), nil
}

func (l *Loader) ints(path string) ([]int, error) {
	v, err := l.cached(path, func(p string) (any, error) {
		rows, err := readLines(p)
		if err != nil {
			return nil, err
		}
		return parseInts(p, rows)
	})
	if err != nil {
		return nil, err
	}
	return append([]int(nil), v.([]int)...), nil
}

func (l *Loader) bools(path string) ([]bool, error) {
	v, err := l.cached(path, func(p string) (any, error) {
		rows, err := readLines(p)
		if err != nil {
			return nil, err
		}
		return parseBools(p, rows)
	})
	if err != nil {
		return nil, err
	}
	return append([]bool(nil), v.([]bool)...), nil
}

func (l *Loader) matrix(path string) (*mat.Dense, error) {
	v, err := l.cached(path, func(p string) (any, error) {
		rows, err := readLines(p)
		if err != nil {
			return nil, err
		}
		return parseMatrix(p, rows)
	})
	if err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(v.(*mat.Dense)), nil
}

func (l *Loader) labels(path string) ([]string, error) {
	v, err := l.cached(path, func(p string) (any, error) {
		rows, err := readLines(p)
		if err != nil {
			return nil, err
		}
		return parseLabels(rows), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.([]string)...), nil
}

func (l *Loader) surface(path string) (*mesh.Surface, error) {
	v, err := l.cached(path, func(p string) (any, error) {
		return mesh.ReadGIfTI(p)
	})
	if err != nil {
		return nil, err
	}
	src := v.(*mesh.Surface)
	return &mesh.Surface{
		Points:    append([]r3.Vec(nil), src.Points...),
		Triangles: append([][3]int(nil), src.Triangles...),
	}, nil
}

// LoadVector reads a file of numbers (one per line, or comma/space
// separated). A single non-numeric first line is treated as a header.
func (l *Loader) LoadVector(path string) ([]float64, error) {
	return l.floats(path)
}

// LoadParcellation loads the {name}_{scale}_conte69 vertex labels for both
// hemispheres, left first.
func (l *Loader) LoadParcellation(name string, scale int) ([]int, error) {
	return l.ints(l.Path("parcellations", fmt.Sprintf("%s_%d_conte69.csv", name, scale)))
}

// LoadAtlas loads the {name}_conte69 vertex labels of a named atlas such as
// aparc, used to place parcels on the sphere.
func (l *Loader) LoadAtlas(name string) ([]int, error) {
	return l.ints(l.Path("parcellations", fmt.Sprintf("%s_conte69.csv", name)))
}

// LoadMask loads a conte69 vertex mask for both hemispheres, left first.
// "midline" (or "") is the cortex mask without the medial wall.
func (l *Loader) LoadMask(name string) ([]bool, error) {
	suffix := ""
	if name != "" && name != "midline" {
		suffix = "_" + name
	}
	lh, err := l.bools(l.Path("surfaces", fmt.Sprintf("conte69_32k_lh%s_mask.csv", suffix)))
	if err != nil {
		return nil, err
	}
	rh, err := l.bools(l.Path("surfaces", fmt.Sprintf("conte69_32k_rh%s_mask.csv", suffix)))
	if err != nil {
		return nil, err
	}
	return append(lh, rh...), nil
}

// SurfaceOptions selects the conte69 variant.
type SurfaceOptions struct {
	AsSphere    bool
	WithNormals bool
}

// LoadConte69 loads the left and right conte69 32k surfaces.
func (l *Loader) LoadConte69(opts SurfaceOptions) (*mesh.Surface, *mesh.Surface, error) {
	pattern := "conte69_32k_%s.gii"
	if opts.AsSphere {
		pattern = "conte69_32k_%s_sphere.gii"
	}
	return l.loadPair(pattern, opts.WithNormals)
}

// LoadFsa5 loads the left and right fsaverage5 pial surfaces.
func (l *Loader) LoadFsa5(withNormals bool) (*mesh.Surface, *mesh.Surface, error) {
	return l.loadPair("fsa5.pial.%s.gii", withNormals)
}

// LoadSubcortical loads the left and right subcortical surfaces.
func (l *Loader) LoadSubcortical(withNormals bool) (*mesh.Surface, *mesh.Surface, error) {
	return l.loadPair("sctx_%s.gii", withNormals)
}

func (l *Loader) loadPair(pattern string, withNormals bool) (*mesh.Surface, *mesh.Surface, error) {
	var out [2]*mesh.Surface
	for i, side := range []string{"lh", "rh"} {
		s, err := l.surface(l.Path("surfaces", fmt.Sprintf(pattern, side)))
		if err != nil {
			return nil, nil, err
		}
		if withNormals {
			mesh.ComputeNormals(s)
		}
		out[i] = s
	}
	return out[0], out[1], nil
}

// LoadFeature loads matrices/main_group/{name}.csv. When mask is given only
// masked vertices are kept; when parcellation is given the kept vertices are
// averaged per label, in ascending label order.
func (l *Loader) LoadFeature(name string, labels []int, mask []bool) ([]float64, error) {
	x, err := l.floats(l.Path("matrices", "main_group", name+".csv"))
	if err != nil {
		return nil, err
	}
	if mask != nil && len(mask) != len(x) {
		return nil, fmt.Errorf("mask has %d entries, feature %s has %d", len(mask), name, len(x))
	}

	if labels == nil {
		if mask == nil {
			return x, nil
		}
		kept := make([]float64, 0, len(x))
		for i, v := range x {
			if mask[i] {
				kept = append(kept, v)
			}
		}
		return kept, nil
	}

	if len(labels) != len(x) {
		return nil, fmt.Errorf("parcellation has %d labels, feature %s has %d", len(labels), name, len(x))
	}
	reduced, _, err := parcellation.ReduceByLabels(x, labels, parcellation.Mean, parcellation.Options{
		Mask:           mask,
		KeepBackground: true,
	})
	return reduced, err
}

// LoadMarker loads a conte69 vertex marker such as thickness, curvature or
// t1wt2w for both hemispheres.
func (l *Loader) LoadMarker(name string) ([]float64, error) {
	return l.LoadFeature("conte69_32k_"+name, nil, nil)
}

// LoadCentroids loads the parcel centroids on the sphere for parcellation,
// one x,y,z row per parcel, left hemisphere first.
func (l *Loader) LoadCentroids(parc string) ([]r3.Vec, error) {
	m, err := l.matrix(l.Path("permutation", parc+"_sphere_centroids.csv"))
	if err != nil {
		return nil, err
	}
	rows, cols := m.Dims()
	if cols != 3 {
		return nil, fmt.Errorf("%w: centroids for %s have %d columns, want 3", ErrMalformed, parc, cols)
	}
	out := make([]r3.Vec, rows)
	for i := range out {
		x, y, z := m.At(i, 0), m.At(i, 1), m.At(i, 2)
		if math.IsNaN(x+y+z) || math.IsInf(x+y+z, 0) {
			return nil, fmt.Errorf("%w: centroids for %s: row %d is not finite", ErrMalformed, parc, i+1)
		}
		out[i] = r3.Vec{X: x, Y: y, Z: z}
	}
	return out, nil
}

// SummaryStats maps a measure name (the file name after "{disorder}_") to
// its table.
type SummaryStats map[string]*Table

// Measures returns the measure names in sorted order.
func (s SummaryStats) Measures() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LoadSummaryStats loads every summary_statistics/{disorder}_*.csv table.
func (l *Loader) LoadSummaryStats(disorder string) (SummaryStats, error) {
	if disorder == "" {
		return nil, fmt.Errorf("disorder cannot be empty")
	}
	prefix := disorder + "_"
	matches, err := filepath.Glob(l.Path("summary_statistics", prefix+"*.csv"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no summary statistics for %q", ErrNotFound, disorder)
	}

	out := make(SummaryStats, len(matches))
	for _, path := range matches {
		v, err := l.cached(path, func(p string) (any, error) {
			return LoadTable(p)
		})
		if err != nil {
			return nil, err
		}
		measure := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), prefix), ".csv")
		out[measure] = v.(*Table).clone()
	}
	return out, nil
}

// Disorders lists the disorders that have summary statistics.
func (l *Loader) Disorders() ([]string, error) {
	entries, err := os.ReadDir(l.Path("summary_statistics"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		if i := strings.IndexByte(name, '_'); i > 0 {
			seen[name[:i]] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}
