package permutation

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/blackwell-systems/enigma/internal/stats"
)

// fibonacci returns n roughly evenly spaced points on the unit sphere.
func fibonacci(n int) []r3.Vec {
	out := make([]r3.Vec, n)
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := range out {
		y := 1 - 2*(float64(i)+0.5)/float64(n)
		r := math.Sqrt(1 - y*y)
		out[i] = r3.Vec{X: r * math.Cos(golden*float64(i)), Y: y, Z: r * math.Sin(golden*float64(i))}
	}
	return out
}

func TestRandomRotation_Orthonormal(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		rot := RandomRotation(rng)
		var rtr mat.Dense
		rtr.Mul(rot.T(), rot)
		assert.True(t, mat.EqualApprox(&rtr, mat.NewDiagDense(3, []float64{1, 1, 1}), 1e-10), "RᵀR != I")
		assert.InDelta(t, 1, mat.Det(rot), 1e-10)
	}
}

func TestMirrored(t *testing.T) {
	// Rotation by 90 degrees about z.
	rz := mat.NewDense(3, 3, []float64{
		0, -1, 0,
		1, 0, 0,
		0, 0, 1,
	})
	want := mat.NewDense(3, 3, []float64{
		0, 1, 0,
		-1, 0, 0,
		0, 0, 1,
	})
	assert.True(t, mat.EqualApprox(Mirrored(rz), want, 1e-12))
}

func TestRotate_PreservesNorm(t *testing.T) {
	rot := RandomRotation(rand.New(rand.NewSource(3)))
	pts := fibonacci(20)
	for i, p := range Rotate(pts, rot) {
		assert.InDelta(t, r3.Norm(pts[i]), r3.Norm(p), 1e-12)
	}
}

func permutations(n int) [][]int {
	if n == 1 {
		return [][]int{{0}}
	}
	var out [][]int
	for _, p := range permutations(n - 1) {
		for pos := 0; pos <= len(p); pos++ {
			q := append(append(append([]int{}, p[:pos]...), n-1), p[pos:]...)
			out = append(out, q)
		}
	}
	return out
}

func TestAssign_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	all := permutations(5)
	for trial := 0; trial < 20; trial++ {
		cost := make([][]float64, 5)
		for i := range cost {
			cost[i] = make([]float64, 5)
			for j := range cost[i] {
				cost[i][j] = rng.Float64()
			}
		}

		best := math.Inf(1)
		for _, p := range all {
			var c float64
			for i, j := range p {
				c += cost[i][j]
			}
			best = math.Min(best, c)
		}

		got, err := assign(cost)
		require.NoError(t, err)
		require.NoError(t, Permutations{got}.Validate(5))
		var c float64
		for i, j := range got {
			c += cost[i][j]
		}
		assert.InDelta(t, best, c, 1e-12)
	}
}

func TestAssign_IdentityForZeroRotation(t *testing.T) {
	pts := fibonacci(10)
	got, err := assign(distances(pts, pts))
	require.NoError(t, err)
	for i, j := range got {
		assert.Equal(t, i, j)
	}
}

func TestRotateParcellation(t *testing.T) {
	lh, rh := fibonacci(12), fibonacci(12)
	var calls atomic.Int64
	perms, err := RotateParcellation(context.Background(), lh, rh, Options{
		N:        25,
		Seed:     42,
		Workers:  3,
		Progress: func(done, total int) { calls.Add(1); assert.Equal(t, 25, total) },
	})
	require.NoError(t, err)
	require.Len(t, perms, 25)
	require.NoError(t, perms.Validate(24))
	assert.EqualValues(t, 25, calls.Load())

	// Hemispheres never mix.
	for _, p := range perms {
		for i, j := range p {
			assert.Equal(t, i < 12, j < 12)
		}
	}
}

func TestRotateParcellation_DeterministicAcrossWorkers(t *testing.T) {
	lh, rh := fibonacci(15), fibonacci(15)
	a, err := RotateParcellation(context.Background(), lh, rh, Options{N: 30, Seed: 5, Workers: 1})
	require.NoError(t, err)
	b, err := RotateParcellation(context.Background(), lh, rh, Options{N: 30, Seed: 5, Workers: 8})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := RotateParcellation(context.Background(), lh, rh, Options{N: 30, Seed: 6, Workers: 8})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestRotateParcellation_Errors(t *testing.T) {
	_, err := RotateParcellation(context.Background(), nil, fibonacci(3), Options{N: 1})
	assert.ErrorIs(t, err, ErrNoPoints)

	_, err = RotateParcellation(context.Background(), fibonacci(3), fibonacci(3), Options{N: 0})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RotateParcellation(ctx, fibonacci(3), fibonacci(3), Options{N: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssign_NonFiniteCost(t *testing.T) {
	cost := [][]float64{{1, 2}, {math.NaN(), math.NaN()}}
	done := make(chan error, 1)
	go func() {
		_, err := assign(cost)
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrNonFinite)
	case <-time.After(5 * time.Second):
		t.Fatal("assign did not return for a NaN cost row")
	}
}

func TestRotateParcellation_NonFinite(t *testing.T) {
	nan := math.NaN()
	lh := []r3.Vec{{X: -1}, {Y: 1}, {X: nan, Y: nan, Z: nan}}
	rh := []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}

	done := make(chan error, 1)
	go func() {
		_, err := RotateParcellation(context.Background(), lh, rh, Options{N: 2, Seed: 1, Workers: 1})
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrNonFinite)
	case <-time.After(5 * time.Second):
		t.Fatal("RotateParcellation did not return with a NaN centroid")
	}

	_, err := SpinVertices(context.Background(), rh, lh, Options{N: 1})
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestSpinVertices(t *testing.T) {
	lh, rh := fibonacci(40), fibonacci(30)
	perms, err := SpinVertices(context.Background(), lh, rh, Options{N: 10, Seed: 1, Workers: 2})
	require.NoError(t, err)
	require.Len(t, perms, 10)
	for _, p := range perms {
		require.Len(t, p, 70)
		for i, j := range p {
			if i < 40 {
				assert.True(t, j >= 0 && j < 40)
			} else {
				assert.True(t, j >= 40 && j < 70)
			}
		}
	}
}

func TestNearest_FindsOriginalVertex(t *testing.T) {
	pts := fibonacci(50)
	n := newNearest(pts)
	for i, p := range pts {
		assert.Equal(t, i, n.find(r3.Scale(1.001, p)))
	}
}

func TestShuffle(t *testing.T) {
	perms, err := Shuffle(context.Background(), 9, Options{N: 20, Seed: 3})
	require.NoError(t, err)
	require.NoError(t, perms.Validate(9))

	_, err = Shuffle(context.Background(), 0, Options{N: 20})
	assert.ErrorIs(t, err, ErrNoPoints)
}

func TestValidate(t *testing.T) {
	assert.Error(t, Permutations{{0, 0, 1}}.Validate(3))
	assert.Error(t, Permutations{{0, 1}}.Validate(3))
	assert.Error(t, Permutations{{0, 1, 3}}.Validate(3))
	assert.NoError(t, Permutations{{2, 0, 1}}.Validate(3))
}

func TestApply(t *testing.T) {
	assert.Equal(t, []float64{30, 10, 20}, Apply([]float64{10, 20, 30}, []int{2, 0, 1}))
}

func TestTester_CorrelatedMaps(t *testing.T) {
	n := 40
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
		y[i] = 2*float64(i) + math.Sin(float64(i))
	}
	perms, err := Shuffle(context.Background(), n, Options{N: 200, Seed: 11})
	require.NoError(t, err)

	tester := &Tester{Perms: perms, Correlation: stats.Pearson, Workers: 4, Both: true}
	res, err := tester.Test(context.Background(), x, y)
	require.NoError(t, err)
	assert.Greater(t, res.R, 0.9)
	assert.Less(t, res.P, 0.05)
	assert.Len(t, res.Null, 400)
	assert.Equal(t, 400, res.N)

	neg := make([]float64, n)
	for i := range y {
		neg[i] = -y[i]
	}
	res, err = tester.Test(context.Background(), x, neg)
	require.NoError(t, err)
	assert.Less(t, res.R, -0.9)
	assert.Less(t, res.P, 0.05)
}

func TestTester_SpearmanOneDirection(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{6, 5, 4, 3, 2, 1}
	perms, err := Shuffle(context.Background(), 6, Options{N: 50, Seed: 2})
	require.NoError(t, err)
	res, err := (&Tester{Perms: perms, Correlation: stats.Spearman}).Test(context.Background(), x, y)
	require.NoError(t, err)
	assert.InDelta(t, -1, res.R, 1e-12)
	// Nothing can be below -1.
	assert.Equal(t, 0.0, res.P)
	assert.Len(t, res.Null, 50)
}

func TestTester_Errors(t *testing.T) {
	perms := Permutations{{1, 0, 2}}
	tester := &Tester{Perms: perms}

	_, err := tester.Test(context.Background(), []float64{1, 2, 3}, []float64{1, 2})
	assert.Error(t, err)

	_, err = tester.Test(context.Background(), []float64{1, 2, 3, 4}, []float64{1, 2, 3, 4})
	assert.Error(t, err)

	_, err = (&Tester{}).Test(context.Background(), []float64{1, 2, 3}, []float64{1, 2, 3})
	assert.Error(t, err)

	_, err = tester.Test(context.Background(), []float64{1, 1, 1}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, stats.ErrDegenerate)
}

func TestExceedance(t *testing.T) {
	nan := math.NaN()
	p, n := exceedance(0.5, []float64{0.1, 0.6, 0.7, nan})
	assert.Equal(t, 3, n)
	assert.InDelta(t, 2.0/3, p, 1e-12)

	p, n = exceedance(-0.5, []float64{-0.6, 0.1, -0.2, -0.9})
	assert.Equal(t, 4, n)
	assert.InDelta(t, 0.5, p, 1e-12)

	p, n = exceedance(0.5, []float64{nan})
	assert.Equal(t, 0, n)
	assert.True(t, math.IsNaN(p))
}
