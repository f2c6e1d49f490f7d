package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ZScore standardises x by its own mean and sample standard deviation.
// NaNs are ignored when estimating and stay NaN in the output.
func ZScore(x []float64) []float64 {
	vals := make([]float64, 0, len(x))
	for _, v := range x {
		if isFinite(v) {
			vals = append(vals, v)
		}
	}
	mean, sd := stat.MeanStdDev(vals, nil)
	return standardise(x, mean, sd)
}

// ZScoreMatrix z-scores every column of data (subjects × features) against
// the rows flagged in controls. Columns whose control standard deviation is
// zero or undefined come back as NaN.
func ZScoreMatrix(data mat.Matrix, controls []bool) (*mat.Dense, error) {
	rows, cols := data.Dims()
	if len(controls) != rows {
		return nil, fmt.Errorf("controls has %d entries, data has %d rows", len(controls), rows)
	}
	nControls := 0
	for _, c := range controls {
		if c {
			nControls++
		}
	}
	if nControls < 2 {
		return nil, fmt.Errorf("need at least 2 controls, have %d", nControls)
	}

	out := mat.NewDense(rows, cols, nil)
	col := make([]float64, rows)
	ref := make([]float64, 0, nControls)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, data)
		ref = ref[:0]
		for i, v := range col {
			if controls[i] && isFinite(v) {
				ref = append(ref, v)
			}
		}
		mean, sd := math.NaN(), math.NaN()
		if len(ref) >= 2 {
			mean, sd = stat.MeanStdDev(ref, nil)
		}
		out.SetCol(j, standardise(col, mean, sd))
	}
	return out, nil
}

func standardise(x []float64, mean, sd float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if !isFinite(v) || sd == 0 || math.IsNaN(sd) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (v - mean) / sd
	}
	return out
}
