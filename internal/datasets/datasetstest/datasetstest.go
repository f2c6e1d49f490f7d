// Package datasetstest writes a small synthetic data directory in the layout
// the datasets loader expects. Each hemisphere is an icosahedron split into
// four parcels, so analyses run end to end in milliseconds.
package datasetstest

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/blackwell-systems/enigma/internal/mesh"
)

const (
	Parcellation     = "aparc"
	Scale            = 8
	Disorder         = "22q"
	CortexMeasure    = "case-controls_CortThick"
	SubcortexMeasure = "case-controls_SubVol"
	Column           = "d_icv"
	VerticesPerHemi  = 12
)

var (
	CortexLabels = []string{
		"L_bankssts", "L_caudalmiddlefrontal", "L_cuneus", "L_fusiform",
		"R_bankssts", "R_caudalmiddlefrontal", "R_cuneus", "R_fusiform",
	}
	SubcortexLabels = []string{"Laccumb", "Lamyg", "Raccumb", "Ramyg"}
)

// Icosahedron returns a unit icosahedron.
func Icosahedron() *mesh.Surface {
	phi := (1 + math.Sqrt(5)) / 2
	raw := []r3.Vec{
		{X: -1, Y: phi}, {X: 1, Y: phi}, {X: -1, Y: -phi}, {X: 1, Y: -phi},
		{Y: -1, Z: phi}, {Y: 1, Z: phi}, {Y: -1, Z: -phi}, {Y: 1, Z: -phi},
		{X: phi, Z: -1}, {X: phi, Z: 1}, {X: -phi, Z: -1}, {X: -phi, Z: 1},
	}
	pts := make([]r3.Vec, len(raw))
	for i, p := range raw {
		pts[i] = r3.Unit(p)
	}
	return &mesh.Surface{
		Points: pts,
		Triangles: [][3]int{
			{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
			{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
			{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
			{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
		},
	}
}

// AtlasLabels returns the vertex labels of both hemispheres: parcels 1-4 on
// the left sphere and 5-8 on the right, split by the signs of y and z.
func AtlasLabels() []int {
	s := Icosahedron()
	out := make([]int, 0, 2*len(s.Points))
	for _, offset := range []int{0, 4} {
		for _, p := range s.Points {
			lab := 1
			if p.Y < 0 {
				lab++
			}
			if p.Z < 0 {
				lab += 2
			}
			out = append(out, lab+offset)
		}
	}
	return out
}

// CortexMatrix is the symmetric cortico-cortical matrix written by Write.
func CortexMatrix() [][]float64 {
	n := len(CortexLabels)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			if i != j {
				m[i][j] = float64((i+1)*(j+1)%7+1) / 10
			}
		}
	}
	return m
}

// SubcortexMatrix is the subcortico-cortical matrix written by Write.
func SubcortexMatrix() [][]float64 {
	m := make([][]float64, len(SubcortexLabels))
	for i := range m {
		m[i] = make([]float64, len(CortexLabels))
		for j := range m[i] {
			m[i][j] = float64((i+2)*(j+3)%5+1) / 10
		}
	}
	return m
}

// CortexEffects are the d_icv values of the cortical summary table.
func CortexEffects() []float64 {
	m := CortexMatrix()
	out := make([]float64, len(m))
	for j := range m {
		var dc float64
		for i := range m {
			dc += m[i][j]
		}
		// Atrophy grows with degree, plus a small alternating term.
		out[j] = -0.2*dc + 0.01*float64(j%2)
	}
	return out
}

// SubcortexEffects are the d_icv values of the subcortical summary table.
func SubcortexEffects() []float64 {
	return []float64{-0.31, -0.12, -0.27, -0.05}
}

// Write builds the synthetic data directory below a fresh temp dir and
// returns its path.
func Write(tb testing.TB) string {
	tb.Helper()
	root := tb.TempDir()
	if err := WriteTo(root); err != nil {
		tb.Fatalf("failed to write test data: %v", err)
	}
	return root
}

// WriteTo builds the synthetic data directory below root.
func WriteTo(root string) error {
	sphere := Icosahedron()
	labels := AtlasLabels()

	files := map[string]string{
		"parcellations/" + Parcellation + "_conte69.csv":                      ints(labels),
		fmt.Sprintf("parcellations/schaefer_%d_conte69.csv", Scale):           ints(labels),
		"surfaces/conte69_32k_lh_mask.csv":                                    mask(VerticesPerHemi, 0),
		"surfaces/conte69_32k_rh_mask.csv":                                    mask(VerticesPerHemi, 0),
		"surfaces/conte69_32k_lh_ctx_mask.csv":                                mask(VerticesPerHemi, 1),
		"surfaces/conte69_32k_rh_ctx_mask.csv":                                mask(VerticesPerHemi, 1),
		"matrices/main_group/conte69_32k_thickness.csv":                       floats(vertexValues(2 * VerticesPerHemi)),
		"matrices/hcp_connectivity/strucMatrix_ctx_" + Parcellation + ".csv":  matrix(CortexMatrix()),
		"matrices/hcp_connectivity/strucLabels_ctx_" + Parcellation + ".csv":  lines(CortexLabels),
		"matrices/hcp_connectivity/strucMatrix_sctx_" + Parcellation + ".csv": matrix(SubcortexMatrix()),
		"matrices/hcp_connectivity/strucLabels_sctx_" + Parcellation + ".csv": lines(SubcortexLabels),
		"matrices/hcp_connectivity/funcMatrix_ctx_" + Parcellation + ".csv":   matrix(CortexMatrix()),
		"matrices/hcp_connectivity/funcLabels_ctx_" + Parcellation + ".csv":   lines(CortexLabels),
		"summary_statistics/" + Disorder + "_" + CortexMeasure + ".csv":       summary(CortexLabels, "_thickavg", CortexEffects()),
		"summary_statistics/" + Disorder + "_" + SubcortexMeasure + ".csv":    summary(SubcortexLabels, "", SubcortexEffects()),
	}

	_, centroids, err := mesh.Centroids(sphere, labels[:VerticesPerHemi], 0)
	if err != nil {
		return err
	}
	var b strings.Builder
	for h := 0; h < 2; h++ {
		for _, c := range centroids {
			fmt.Fprintf(&b, "%.9f,%.9f,%.9f\n", c.X, c.Y, c.Z)
		}
	}
	files["permutation/"+Parcellation+"_sphere_centroids.csv"] = b.String()

	for name, content := range files {
		if err := writeFile(filepath.Join(root, name), []byte(content)); err != nil {
			return err
		}
	}

	for _, name := range []string{
		"conte69_32k_lh.gii", "conte69_32k_rh.gii",
		"conte69_32k_lh_sphere.gii", "conte69_32k_rh_sphere.gii",
		"fsa5.pial.lh.gii", "fsa5.pial.rh.gii",
		"sctx_lh.gii", "sctx_rh.gii",
	} {
		var buf strings.Builder
		if err := mesh.WriteGIfTI(&buf, sphere); err != nil {
			return err
		}
		if err := writeFile(filepath.Join(root, "surfaces", name), []byte(buf.String())); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func vertexValues(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 2 + float64(i%5)/10
	}
	return out
}

func ints(x []int) string {
	var b strings.Builder
	for _, v := range x {
		fmt.Fprintf(&b, "%d\n", v)
	}
	return b.String()
}

func floats(x []float64) string {
	var b strings.Builder
	for _, v := range x {
		fmt.Fprintf(&b, "%g\n", v)
	}
	return b.String()
}

// mask marks every vertex except the first skip ones.
func mask(n, skip int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i < skip {
			b.WriteString("0\n")
		} else {
			b.WriteString("1\n")
		}
	}
	return b.String()
}

func matrix(m [][]float64) string {
	var b strings.Builder
	for _, row := range m {
		for j, v := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "%g", v)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func lines(x []string) string {
	return strings.Join(x, "\n") + "\n"
}

func summary(regions []string, suffix string, d []float64) string {
	var b strings.Builder
	b.WriteString("Structure,d_icv,d_se_icv,low_ci_icv,up_ci_icv,n_controls,n_patients,pobs,fdr_p\n")
	for i, r := range regions {
		fmt.Fprintf(&b, "%s%s,%g,0.05,%g,%g,120,110,0.01,0.02\n", r, suffix, d[i], d[i]-0.1, d[i]+0.1)
	}
	return b.String()
}
