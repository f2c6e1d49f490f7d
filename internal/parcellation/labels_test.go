package parcellation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceByLabels_Ops(t *testing.T) {
	values := []float64{1, 2, 3, 10, 20, 20, 99}
	labels := []int{1, 1, 1, 2, 2, 2, 0}

	tests := []struct {
		op   Reduction
		want []float64
	}{
		{Mean, []float64{2, 50.0 / 3}},
		{Median, []float64{2, 20}},
		{Sum, []float64{6, 50}},
		{Min, []float64{1, 10}},
		{Max, []float64{3, 20}},
		{Mode, []float64{1, 20}},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			got, keys, err := ReduceByLabels(values, labels, tt.op, Options{})
			require.NoError(t, err)
			assert.Equal(t, []int{1, 2}, keys)
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}
}

func TestReduceByLabels_MaskAndNaN(t *testing.T) {
	values := []float64{1, math.NaN(), 5, 7}
	labels := []int{3, 3, 4, 4}
	mask := []bool{true, true, true, false}

	got, keys, err := ReduceByLabels(values, labels, Mean, Options{Mask: mask})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, keys)
	assert.Equal(t, []float64{1, 5}, got)
}

func TestReduceByLabels_KeepBackground(t *testing.T) {
	got, keys, err := ReduceByLabels([]float64{4, 6, 1}, []int{0, 0, 1}, Mean, Options{KeepBackground: true})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, keys)
	assert.Equal(t, []float64{5, 1}, got)
}

func TestReduceByLabels_Errors(t *testing.T) {
	_, _, err := ReduceByLabels([]float64{1}, []int{1, 2}, Mean, Options{})
	assert.Error(t, err)

	_, _, err = ReduceByLabels([]float64{1}, []int{1}, "geomean", Options{})
	assert.Error(t, err)

	_, _, err = ReduceByLabels([]float64{1}, []int{1}, Mean, Options{Mask: []bool{true, false}})
	assert.Error(t, err)
}

func TestMapToLabels_InvertsReduceOnConstantParcels(t *testing.T) {
	labels := []int{0, 2, 2, 5, 5, 5, 0}
	vertex := []float64{-1, 3, 3, 8, 8, 8, -1}

	parcels, _, err := ReduceByLabels(vertex, labels, Mean, Options{})
	require.NoError(t, err)

	back, err := MapToLabels(parcels, labels, -1, Options{})
	require.NoError(t, err)
	assert.Equal(t, vertex, back)
}

func TestMapToLabels_CountMismatch(t *testing.T) {
	_, err := MapToLabels([]float64{1}, []int{1, 2}, 0, Options{})
	assert.Error(t, err)
}

func TestRelabel(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 2, 1, 3}, Relabel([]int{0, 10, 30, 30, 10, 99}, 0))
}

func TestSurfaceToParcel_RoundTrip(t *testing.T) {
	labels := []int{0, 1, 1, 2, 2, 0}
	vertex := []float64{9, 1, 3, 4, 4, 9}

	parcels, err := SurfaceToParcel(vertex, labels)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, parcels)

	back, err := ParcelToSurface(parcels, labels)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(back[0]))
	assert.True(t, math.IsNaN(back[5]))
	assert.Equal(t, []float64{2, 2, 4, 4}, back[1:5])
}
