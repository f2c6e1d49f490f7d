package permutation

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/enigma/internal/stats"
)

// Tester evaluates the significance of a correlation against a fixed set of
// permutations.
type Tester struct {
	Perms       Permutations
	Correlation stats.Kind
	Workers     int
	// Both also permutes y against the unpermuted x and pools the two null
	// distributions.
	Both bool
}

// Result is the outcome of one permutation test.
type Result struct {
	// R is the observed correlation.
	R float64
	// P is the fraction of null correlations beyond R in the direction of
	// its sign.
	P float64
	// Null holds the null correlations, x permutations first. Entries are
	// NaN where the permuted correlation was undefined.
	Null []float64
	// N is the number of defined null correlations.
	N int
}

// Test correlates x with y and compares the coefficient against the null
// built by permuting x (and y when Both is set).
func (t *Tester) Test(ctx context.Context, x, y []float64) (*Result, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("maps have %d and %d entries", len(x), len(y))
	}
	if len(t.Perms) == 0 {
		return nil, errors.New("no permutations to test against")
	}
	if n := t.Perms.Len(); n != len(x) {
		return nil, fmt.Errorf("permutations cover %d entries, maps have %d", n, len(x))
	}

	r, err := stats.Correlate(t.Correlation, x, y)
	if err != nil {
		return nil, err
	}

	xy, err := t.null(ctx, x, y)
	if err != nil {
		return nil, err
	}
	p, n := exceedance(r, xy)
	res := &Result{R: r, P: p, Null: xy, N: n}

	if t.Both {
		yx, err := t.null(ctx, y, x)
		if err != nil {
			return nil, err
		}
		pyx, nyx := exceedance(r, yx)
		switch {
		case nyx == 0:
		case n == 0:
			res.P = pyx
		default:
			res.P = (res.P + pyx) / 2
		}
		res.Null = append(res.Null, yx...)
		res.N += nyx
	}
	if res.N == 0 {
		return nil, fmt.Errorf("every permuted correlation is undefined: %w", stats.ErrDegenerate)
	}
	return res, nil
}

// null correlates every permutation of a with b.
func (t *Tester) null(ctx context.Context, a, b []float64) ([]float64, error) {
	out := make([]float64, len(t.Perms))
	g, ctx := errgroup.WithContext(ctx)
	workers := t.Workers
	if workers <= 0 {
		workers = Options{}.workers()
	}
	g.SetLimit(workers)
	for k, perm := range t.Perms {
		k, perm := k, perm
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := stats.Correlate(t.Correlation, Apply(a, perm), b)
			if err != nil {
				if errors.Is(err, stats.ErrDegenerate) {
					r = math.NaN()
				} else {
					return err
				}
			}
			out[k] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// exceedance returns the fraction of defined null values strictly beyond
// r in the direction of its sign, and how many were defined.
func exceedance(r float64, null []float64) (float64, int) {
	var beyond, n int
	for _, v := range null {
		if math.IsNaN(v) {
			continue
		}
		n++
		if (r >= 0 && v > r) || (r < 0 && v < r) {
			beyond++
		}
	}
	if n == 0 {
		return math.NaN(), 0
	}
	return float64(beyond) / float64(n), n
}
