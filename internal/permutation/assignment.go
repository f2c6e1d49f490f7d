package permutation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// assign solves the square linear assignment problem with the Hungarian
// method and returns, for each row, the column it is matched to. The total
// cost of the matching is minimal. Every cost must be finite.
func assign(cost [][]float64) ([]int, error) {
	n := len(cost)
	inf := math.Inf(1)

	// 1-based potentials; p[j] is the row matched to column j.
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)
	minv := make([]float64, n+1)
	used := make([]bool, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		for j := range minv {
			minv[j] = inf
			used[j] = false
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			if j1 == 0 {
				return nil, fmt.Errorf("%w: no finite assignment cost for row %d", ErrNonFinite, i0-1)
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	out := make([]int, n)
	for j := 1; j <= n; j++ {
		out[p[j]-1] = j - 1
	}
	return out, nil
}

// distances returns the Euclidean distance matrix between a and b.
func distances(a, b []r3.Vec) [][]float64 {
	out := make([][]float64, len(a))
	for i, p := range a {
		out[i] = make([]float64, len(b))
		for j, q := range b {
			out[i][j] = r3.Norm(r3.Sub(p, q))
		}
	}
	return out
}
