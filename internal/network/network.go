// Package network implements the connectome models: nodal degree, hub
// selection, the hub susceptibility model and epicenter mapping.
package network

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/blackwell-systems/enigma/internal/permutation"
)

// ErrShape is returned when a matrix and a map do not line up.
var ErrShape = errors.New("shape mismatch")

// Tester assesses a correlation between two maps.
type Tester interface {
	Test(ctx context.Context, x, y []float64) (*permutation.Result, error)
}

// Axis selects what a sum runs over.
type Axis int

const (
	// Columns sums each column (one value per column).
	Columns Axis = iota
	// Rows sums each row (one value per row).
	Rows
)

// checkFinite rejects infinite weights. NaN weights count as absent edges.
func checkFinite(m mat.Matrix) error {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsInf(m.At(i, j), 0) {
				return fmt.Errorf("connectivity[%d,%d] is infinite", i, j)
			}
		}
	}
	return nil
}

// Strength returns the row or column sums of m, ignoring NaN entries.
func Strength(m mat.Matrix, axis Axis) []float64 {
	r, c := m.Dims()
	n := c
	if axis == Rows {
		n = r
	}
	out := make([]float64, n)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			if axis == Rows {
				out[i] += v
			} else {
				out[j] += v
			}
		}
	}
	return out
}

// DegreeCentrality returns the weighted degree of every node of the square
// matrix m: the sum of each column.
func DegreeCentrality(m mat.Matrix) ([]float64, error) {
	r, c := m.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: connectivity is %dx%d, want square", ErrShape, r, c)
	}
	if err := checkFinite(m); err != nil {
		return nil, err
	}
	return Strength(m, Columns), nil
}

// Hubs flags nodes whose degree exceeds the mean by more than threshold
// sample standard deviations.
func Hubs(degree []float64, threshold float64) []bool {
	out := make([]bool, len(degree))
	if len(degree) < 2 {
		return out
	}
	mean, sd := stat.MeanStdDev(degree, nil)
	cut := mean + threshold*sd
	for i, d := range degree {
		out[i] = d > cut
	}
	return out
}

// HubResult is the outcome of the hub susceptibility model.
type HubResult struct {
	Degree []float64
	Hubs   []bool
	// R is the correlation between degree and the disease map; P its
	// permutation p-value.
	R    float64
	P    float64
	Null []float64
}

// HubSusceptibility correlates the degree centrality of the square cortical
// matrix with a cortical disease map.
func HubSusceptibility(ctx context.Context, conn mat.Matrix, disease []float64, t Tester, threshold float64) (*HubResult, error) {
	degree, err := DegreeCentrality(conn)
	if err != nil {
		return nil, err
	}
	return hubModel(ctx, degree, disease, t, threshold)
}

// SubcorticalHubSusceptibility correlates the strength of each subcortical
// region (row sums of its connections to cortex) with a subcortical disease
// map.
func SubcorticalHubSusceptibility(ctx context.Context, conn mat.Matrix, disease []float64, t Tester, threshold float64) (*HubResult, error) {
	if err := checkFinite(conn); err != nil {
		return nil, err
	}
	return hubModel(ctx, Strength(conn, Rows), disease, t, threshold)
}

func hubModel(ctx context.Context, degree, disease []float64, t Tester, threshold float64) (*HubResult, error) {
	if len(degree) != len(disease) {
		return nil, fmt.Errorf("%w: %d regions in connectivity, %d in disease map", ErrShape, len(degree), len(disease))
	}
	res, err := t.Test(ctx, degree, disease)
	if err != nil {
		return nil, fmt.Errorf("failed to test degree against disease map: %w", err)
	}
	return &HubResult{
		Degree: degree,
		Hubs:   Hubs(degree, threshold),
		R:      res.R,
		P:      res.P,
		Null:   res.Null,
	}, nil
}

// Epicenter is one seed region's fit to the disease map.
type Epicenter struct {
	Index int
	R     float64
	P     float64
}

// Epicenters correlates every seed's connectivity profile (its column of the
// square cortical matrix) with the cortical disease map. Results are in seed
// order; a seed whose profile is undefined gets NaN.
func Epicenters(ctx context.Context, conn mat.Matrix, disease []float64, t Tester) ([]Epicenter, error) {
	r, c := conn.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: connectivity is %dx%d, want square", ErrShape, r, c)
	}
	if r != len(disease) {
		return nil, fmt.Errorf("%w: %d regions in connectivity, %d in disease map", ErrShape, r, len(disease))
	}
	if err := checkFinite(conn); err != nil {
		return nil, err
	}
	return epicenters(ctx, c, func(seed int) []float64 {
		return mat.Col(nil, seed, conn)
	}, disease, t)
}

// SubcorticalEpicenters correlates every subcortical seed's connections to
// cortex (its row of the subcortico-cortical matrix) with the cortical
// disease map.
func SubcorticalEpicenters(ctx context.Context, conn mat.Matrix, disease []float64, t Tester) ([]Epicenter, error) {
	r, c := conn.Dims()
	if c != len(disease) {
		return nil, fmt.Errorf("%w: %d cortical regions in connectivity, %d in disease map", ErrShape, c, len(disease))
	}
	if err := checkFinite(conn); err != nil {
		return nil, err
	}
	return epicenters(ctx, r, func(seed int) []float64 {
		return mat.Row(nil, seed, conn)
	}, disease, t)
}

func epicenters(ctx context.Context, n int, profile func(int) []float64, disease []float64, t Tester) ([]Epicenter, error) {
	out := make([]Epicenter, n)
	for seed := 0; seed < n; seed++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := t.Test(ctx, profile(seed), disease)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			out[seed] = Epicenter{Index: seed, R: math.NaN(), P: math.NaN()}
			continue
		}
		out[seed] = Epicenter{Index: seed, R: res.R, P: res.P}
	}
	return out, nil
}

// Ranked returns a copy of eps sorted by correlation, strongest positive
// first. Undefined seeds sort last.
func Ranked(eps []Epicenter) []Epicenter {
	out := append([]Epicenter(nil), eps...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].R, out[j].R
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a > b
	})
	return out
}

// Significant returns the seeds with p below alpha, in input order.
func Significant(eps []Epicenter, alpha float64) []Epicenter {
	var out []Epicenter
	for _, e := range eps {
		if !math.IsNaN(e.P) && e.P < alpha {
			out = append(out, e)
		}
	}
	return out
}
