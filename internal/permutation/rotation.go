package permutation

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// mirror flips the x axis, mapping left hemisphere coordinates to right.
var mirror = mat.NewDiagDense(3, []float64{-1, 1, 1})

// RandomRotation draws a rotation matrix uniformly from SO(3): the Q factor
// of a Gaussian matrix with its columns sign-corrected by diag(R), and the
// first column flipped when the determinant is negative.
func RandomRotation(rng *rand.Rand) *mat.Dense {
	g := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			g.Set(i, j, rng.NormFloat64())
		}
	}

	var qr mat.QR
	qr.Factorize(g)
	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)

	for j := 0; j < 3; j++ {
		if r.At(j, j) < 0 {
			for i := 0; i < 3; i++ {
				q.Set(i, j, -q.At(i, j))
			}
		}
	}
	if mat.Det(&q) < 0 {
		for i := 0; i < 3; i++ {
			q.Set(i, 0, -q.At(i, 0))
		}
	}
	return &q
}

// Mirrored returns S·R·S with S = diag(-1, 1, 1), the rotation applied to
// the right hemisphere when R is applied to the left.
func Mirrored(rot mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Product(mirror, rot, mirror)
	return &out
}

// Rotate applies rot to row-vector points: p' = p·R.
func Rotate(points []r3.Vec, rot mat.Matrix) []r3.Vec {
	out := make([]r3.Vec, len(points))
	for i, p := range points {
		out[i] = r3.Vec{
			X: p.X*rot.At(0, 0) + p.Y*rot.At(1, 0) + p.Z*rot.At(2, 0),
			Y: p.X*rot.At(0, 1) + p.Y*rot.At(1, 1) + p.Z*rot.At(2, 1),
			Z: p.X*rot.At(0, 2) + p.Y*rot.At(1, 2) + p.Z*rot.At(2, 2),
		}
	}
	return out
}
