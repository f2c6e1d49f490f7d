// Package parcellation moves data between vertex-wise surface maps and
// parcel-wise vectors.
//
// A parcellation is one integer label per vertex. Parcel vectors are ordered
// by ascending label; the background label (the medial wall, 0 by default)
// is dropped unless KeepBackground is set.
package parcellation

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Reduction names the per-parcel summary used by ReduceByLabels.
type Reduction string

const (
	Mean   Reduction = "mean"
	Median Reduction = "median"
	Sum    Reduction = "sum"
	Min    Reduction = "min"
	Max    Reduction = "max"
	Mode   Reduction = "mode"
)

// Options controls which vertices take part.
type Options struct {
	// Mask, when non-nil, excludes vertices whose entry is false.
	Mask []bool
	// Background is the label treated as "no parcel".
	Background int
	// KeepBackground reports the background label as a parcel of its own.
	KeepBackground bool
}

// Labels returns the sorted unique parcel labels present in labels under
// opts.
func Labels(labels []int, opts Options) ([]int, error) {
	if opts.Mask != nil && len(opts.Mask) != len(labels) {
		return nil, fmt.Errorf("mask has %d entries, parcellation has %d", len(opts.Mask), len(labels))
	}
	seen := make(map[int]struct{})
	for i, lab := range labels {
		if !included(i, lab, opts) {
			continue
		}
		seen[lab] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for lab := range seen {
		out = append(out, lab)
	}
	sort.Ints(out)
	return out, nil
}

// ReduceByLabels summarises vertex values per parcel. NaN vertices are
// ignored; a parcel with no finite value yields NaN. It returns the parcel
// values and their labels.
func ReduceByLabels(values []float64, labels []int, op Reduction, opts Options) ([]float64, []int, error) {
	if len(values) != len(labels) {
		return nil, nil, fmt.Errorf("%d values for %d labels", len(values), len(labels))
	}
	keys, err := Labels(labels, opts)
	if err != nil {
		return nil, nil, err
	}
	index := make(map[int]int, len(keys))
	for i, k := range keys {
		index[k] = i
	}

	groups := make([][]float64, len(keys))
	for i, lab := range labels {
		if !included(i, lab, opts) || math.IsNaN(values[i]) {
			continue
		}
		j := index[lab]
		groups[j] = append(groups[j], values[i])
	}

	out := make([]float64, len(keys))
	for j, g := range groups {
		v, err := reduce(g, op)
		if err != nil {
			return nil, nil, err
		}
		out[j] = v
	}
	return out, keys, nil
}

// MapToLabels expands parcel values to vertices. values[i] belongs to the
// i-th label returned by Labels(labels, opts); excluded vertices get fill.
func MapToLabels(values []float64, labels []int, fill float64, opts Options) ([]float64, error) {
	keys, err := Labels(labels, opts)
	if err != nil {
		return nil, err
	}
	if len(values) != len(keys) {
		return nil, fmt.Errorf("%d parcel values for %d parcels", len(values), len(keys))
	}
	index := make(map[int]int, len(keys))
	for i, k := range keys {
		index[k] = i
	}

	out := make([]float64, len(labels))
	for i, lab := range labels {
		if !included(i, lab, opts) {
			out[i] = fill
			continue
		}
		out[i] = values[index[lab]]
	}
	return out, nil
}

// SurfaceToParcel averages a vertex map within each parcel of an atlas
// such as aparc_conte69, dropping the label 0 medial wall.
func SurfaceToParcel(values []float64, labels []int) ([]float64, error) {
	out, _, err := ReduceByLabels(values, labels, Mean, Options{})
	return out, err
}

// ParcelToSurface paints parcel values back onto the vertices of the atlas;
// medial wall vertices get NaN.
func ParcelToSurface(values []float64, labels []int) ([]float64, error) {
	return MapToLabels(values, labels, math.NaN(), Options{})
}

// Relabel maps labels to consecutive integers 1..n in ascending order,
// leaving the background label unchanged.
func Relabel(labels []int, background int) []int {
	keys, _ := Labels(labels, Options{Background: background})
	index := make(map[int]int, len(keys))
	for i, k := range keys {
		index[k] = i + 1
	}
	out := make([]int, len(labels))
	for i, lab := range labels {
		if lab == background {
			out[i] = background
			continue
		}
		out[i] = index[lab]
	}
	return out
}

func included(i, lab int, opts Options) bool {
	if opts.Mask != nil && !opts.Mask[i] {
		return false
	}
	if lab == opts.Background && !opts.KeepBackground {
		return false
	}
	return true
}

func reduce(g []float64, op Reduction) (float64, error) {
	if len(g) == 0 {
		return math.NaN(), nil
	}
	switch op {
	case Mean, "":
		return stat.Mean(g, nil), nil
	case Median:
		sorted := append([]float64(nil), g...)
		sort.Float64s(sorted)
		n := len(sorted)
		if n%2 == 1 {
			return sorted[n/2], nil
		}
		return (sorted[n/2-1] + sorted[n/2]) / 2, nil
	case Sum:
		return floats.Sum(g), nil
	case Min:
		return floats.Min(g), nil
	case Max:
		return floats.Max(g), nil
	case Mode:
		return mode(g), nil
	}
	return math.NaN(), fmt.Errorf("unknown reduction %q", op)
}

// mode returns the most frequent value, the smallest one on ties.
func mode(g []float64) float64 {
	sorted := append([]float64(nil), g...)
	sort.Float64s(sorted)
	best, bestCount := sorted[0], 0
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if j-i > bestCount {
			best, bestCount = sorted[i], j-i
		}
		i = j
	}
	return best
}
