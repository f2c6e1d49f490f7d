package analyzer

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/blackwell-systems/enigma/internal/datasets"
	"github.com/blackwell-systems/enigma/internal/log"
	"github.com/blackwell-systems/enigma/internal/mesh"
	"github.com/blackwell-systems/enigma/internal/permutation"
	"github.com/blackwell-systems/enigma/internal/store"
)

func (a *Analyzer) permOptions() permutation.Options {
	return permutation.Options{
		N:        a.opts.NRot,
		Seed:     a.opts.Seed,
		Workers:  a.opts.Workers,
		Progress: a.opts.Progress,
	}
}

// cached returns the permutation set under key, generating and storing it
// on a miss. A cached set of the wrong length is regenerated.
func (a *Analyzer) cached(key store.SpinKey, n int, gen func() (permutation.Permutations, error)) (permutation.Permutations, error) {
	perms, ok, err := a.store.GetSpins(key)
	if err != nil {
		return nil, err
	}
	if ok && len(perms) > 0 && len(perms[0]) == n {
		log.Infof("using %d cached %s permutations for %s", len(perms), key.Method, key.Parcellation)
		return perms, nil
	}

	log.Infof("generating %d %s permutations for %s", key.NRot, key.Method, key.Parcellation)
	perms, err = gen()
	if err != nil {
		return nil, err
	}
	if err := a.store.PutSpins(key, perms); err != nil {
		return nil, err
	}
	return perms, nil
}

// spins returns rotate-parcellation permutations for n parcels of parc.
func (a *Analyzer) spins(ctx context.Context, parc string, n int) (permutation.Permutations, error) {
	key := store.SpinKey{Parcellation: parc, Method: MethodRotate, NRot: a.opts.NRot, Seed: a.opts.Seed}
	return a.cached(key, n, func() (permutation.Permutations, error) {
		centroids, err := a.centroids(parc)
		if err != nil {
			return nil, err
		}
		if len(centroids) != n {
			return nil, fmt.Errorf("%s has %d centroids for %d regions", parc, len(centroids), n)
		}
		lh, rh, err := datasets.Hemispheres(centroids)
		if err != nil {
			return nil, err
		}
		return permutation.RotateParcellation(ctx, lh, rh, a.permOptions())
	})
}

// centroids loads the parcel centroids of parc, computing them from the
// conte69 sphere when no centroid file is available.
func (a *Analyzer) centroids(parc string) ([]r3.Vec, error) {
	c, err := a.loader.LoadCentroids(parc)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, datasets.ErrNotFound) {
		return nil, err
	}

	log.Infof("no centroid file for %s, computing centroids on the sphere", parc)
	labels, err := a.loader.LoadAtlas(parc)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s atlas for centroids: %w", parc, err)
	}
	lhLabels, rhLabels, err := datasets.Hemispheres(labels)
	if err != nil {
		return nil, err
	}
	lh, rh, err := a.loader.LoadConte69(datasets.SurfaceOptions{AsSphere: true})
	if err != nil {
		return nil, err
	}

	var out []r3.Vec
	for _, hemi := range []struct {
		sphere *mesh.Surface
		labels []int
	}{{lh, lhLabels}, {rh, rhLabels}} {
		_, c, err := mesh.Centroids(hemi.sphere, hemi.labels, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to compute %s centroids: %w", parc, err)
		}
		out = append(out, c...)
	}
	return out, nil
}

// vertexSpins returns vertex-level permutations over the conte69 sphere.
func (a *Analyzer) vertexSpins(ctx context.Context) (permutation.Permutations, error) {
	lh, rh, err := a.loader.LoadConte69(datasets.SurfaceOptions{AsSphere: true})
	if err != nil {
		return nil, err
	}
	n := lh.NumPoints() + rh.NumPoints()
	key := store.SpinKey{Parcellation: "conte69", Method: MethodVertex, NRot: a.opts.NRot, Seed: a.opts.Seed}
	return a.cached(key, n, func() (permutation.Permutations, error) {
		return permutation.SpinVertices(ctx, lh.Points, rh.Points, a.permOptions())
	})
}

// shuffles returns plain permutations of n regions.
func (a *Analyzer) shuffles(ctx context.Context, name string, n int) (permutation.Permutations, error) {
	key := store.SpinKey{Parcellation: name, Method: MethodShuffle, NRot: a.opts.NRot, Seed: a.opts.Seed}
	return a.cached(key, n, func() (permutation.Permutations, error) {
		return permutation.Shuffle(ctx, n, a.permOptions())
	})
}

func (a *Analyzer) tester(perms permutation.Permutations) *permutation.Tester {
	return &permutation.Tester{
		Perms:       perms,
		Correlation: a.opts.Correlation,
		Workers:     a.opts.Workers,
		Both:        true,
	}
}
