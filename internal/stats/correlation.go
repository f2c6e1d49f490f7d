package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrDegenerate is returned when a correlation is undefined: fewer than
// three complete pairs or a constant input.
var ErrDegenerate = errors.New("correlation undefined")

// Kind selects the correlation coefficient.
type Kind string

const (
	Pearson  Kind = "pearson"
	Spearman Kind = "spearman"
)

// ParseKind validates a correlation name.
func ParseKind(name string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case Pearson:
		return Pearson, nil
	case Spearman:
		return Spearman, nil
	}
	return "", fmt.Errorf("unknown correlation type %q (want pearson or spearman)", name)
}

// Correlate computes the coefficient of the given kind over complete pairs.
func Correlate(kind Kind, x, y []float64) (float64, error) {
	switch kind {
	case Pearson, "":
		return PearsonR(x, y)
	case Spearman:
		return SpearmanR(x, y)
	}
	return math.NaN(), fmt.Errorf("unknown correlation type %q", kind)
}

// PearsonR returns the Pearson product-moment correlation of x and y.
func PearsonR(x, y []float64) (float64, error) {
	xs, ys, err := Complete(x, y)
	if err != nil {
		return math.NaN(), err
	}
	return pearson(xs, ys)
}

// SpearmanR returns the Spearman rank correlation of x and y. Ties receive
// their average rank.
func SpearmanR(x, y []float64) (float64, error) {
	xs, ys, err := Complete(x, y)
	if err != nil {
		return math.NaN(), err
	}
	return pearson(Rank(xs), Rank(ys))
}

func pearson(x, y []float64) (float64, error) {
	if len(x) < 3 {
		return math.NaN(), fmt.Errorf("%w: %d complete pairs", ErrDegenerate, len(x))
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.NaN(), fmt.Errorf("%w: constant input", ErrDegenerate)
	}
	// Guard against rounding past the unit interval.
	return math.Max(-1, math.Min(1, r)), nil
}

// Complete returns copies of x and y restricted to indices where both values
// are finite.
func Complete(x, y []float64) ([]float64, []float64, error) {
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("length mismatch: %d vs %d", len(x), len(y))
	}
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if isFinite(x[i]) && isFinite(y[i]) {
			xs = append(xs, x[i])
			ys = append(ys, y[i])
		}
	}
	return xs, ys, nil
}

// Rank returns 1-based ranks of x with ties averaged.
func Rank(x []float64) []float64 {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	ranks := make([]float64, len(x))
	for i := 0; i < len(idx); {
		j := i + 1
		for j < len(idx) && x[idx[j]] == x[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}
	return ranks
}

// PearsonP returns the two-sided parametric p-value of correlation r over n
// complete pairs, from the Student t distribution with n-2 degrees of
// freedom.
func PearsonP(r float64, n int) float64 {
	if n < 3 || math.IsNaN(r) {
		return math.NaN()
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(t))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
