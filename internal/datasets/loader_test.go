package datasets

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/blackwell-systems/enigma/internal/datasets/datasetstest"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := New(datasetstest.Write(t), 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l
}

func TestNew_EmptyRoot(t *testing.T) {
	if _, err := New("", 0); err == nil {
		t.Error("expected error for empty root")
	}
}

func TestLoadParcellation(t *testing.T) {
	l := newTestLoader(t)
	labels, err := l.LoadParcellation("schaefer", datasetstest.Scale)
	if err != nil {
		t.Fatalf("LoadParcellation() error = %v", err)
	}
	if len(labels) != 2*datasetstest.VerticesPerHemi {
		t.Errorf("got %d labels", len(labels))
	}

	_, err = l.LoadParcellation("schaefer", 400)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestLoadMask(t *testing.T) {
	l := newTestLoader(t)

	tests := []struct {
		name      string
		wantFalse int
	}{
		{"midline", 0},
		{"", 0},
		{"ctx", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := l.LoadMask(tt.name)
			if err != nil {
				t.Fatalf("LoadMask() error = %v", err)
			}
			if len(m) != 2*datasetstest.VerticesPerHemi {
				t.Fatalf("got %d entries", len(m))
			}
			n := 0
			for _, v := range m {
				if !v {
					n++
				}
			}
			if n != tt.wantFalse {
				t.Errorf("%d masked vertices, want %d", n, tt.wantFalse)
			}
		})
	}
}

func TestLoadSurfaces(t *testing.T) {
	l := newTestLoader(t)

	lh, rh, err := l.LoadConte69(SurfaceOptions{AsSphere: true, WithNormals: true})
	if err != nil {
		t.Fatalf("LoadConte69() error = %v", err)
	}
	if lh.NumPoints() != datasetstest.VerticesPerHemi || rh.NumPoints() != datasetstest.VerticesPerHemi {
		t.Errorf("points = %d, %d", lh.NumPoints(), rh.NumPoints())
	}
	if lh.Normals == nil {
		t.Error("normals not computed")
	}

	if _, _, err := l.LoadFsa5(false); err != nil {
		t.Errorf("LoadFsa5() error = %v", err)
	}
	s, _, err := l.LoadSubcortical(false)
	if err != nil {
		t.Fatalf("LoadSubcortical() error = %v", err)
	}
	if s.Normals != nil {
		t.Error("normals computed without being asked for")
	}
}

func TestLoadSurface_ReturnsCopies(t *testing.T) {
	l := newTestLoader(t)
	a, _, err := l.LoadConte69(SurfaceOptions{})
	if err != nil {
		t.Fatal(err)
	}
	a.Points[0].X = 42
	b, _, _ := l.LoadConte69(SurfaceOptions{})
	if b.Points[0].X == 42 {
		t.Error("cached surface was modified through a returned copy")
	}
}

func TestLoadFeature(t *testing.T) {
	l := newTestLoader(t)

	raw, err := l.LoadFeature("conte69_32k_thickness", nil, nil)
	if err != nil {
		t.Fatalf("LoadFeature() error = %v", err)
	}
	if len(raw) != 2*datasetstest.VerticesPerHemi {
		t.Fatalf("got %d values", len(raw))
	}

	mask, _ := l.LoadMask("ctx")
	masked, err := l.LoadFeature("conte69_32k_thickness", nil, mask)
	if err != nil {
		t.Fatalf("LoadFeature(mask) error = %v", err)
	}
	if len(masked) != len(raw)-2 {
		t.Errorf("masked length = %d, want %d", len(masked), len(raw)-2)
	}

	labels, _ := l.LoadAtlas(datasetstest.Parcellation)
	parc, err := l.LoadFeature("conte69_32k_thickness", labels, nil)
	if err != nil {
		t.Fatalf("LoadFeature(labels) error = %v", err)
	}
	if len(parc) != len(datasetstest.CortexLabels) {
		t.Errorf("got %d parcels, want %d", len(parc), len(datasetstest.CortexLabels))
	}

	if _, err := l.LoadFeature("conte69_32k_thickness", []int{1, 2}, nil); err == nil {
		t.Error("expected error for short parcellation")
	}
}

func TestLoadMarker(t *testing.T) {
	l := newTestLoader(t)
	x, err := l.LoadMarker("thickness")
	if err != nil {
		t.Fatalf("LoadMarker() error = %v", err)
	}
	lh, rh, err := Hemispheres(x)
	if err != nil {
		t.Fatal(err)
	}
	if len(lh) != len(rh) {
		t.Errorf("hemispheres differ: %d vs %d", len(lh), len(rh))
	}
}

func TestLoadConnectivity(t *testing.T) {
	l := newTestLoader(t)

	sc, err := l.LoadConnectivity(Structural, datasetstest.Parcellation)
	if err != nil {
		t.Fatalf("LoadConnectivity(sc) error = %v", err)
	}
	n := len(datasetstest.CortexLabels)
	if r, c := sc.Cortex.Dims(); r != n || c != n {
		t.Errorf("cortex dims = %dx%d", r, c)
	}
	if sc.Subcortex == nil {
		t.Fatal("subcortex not loaded")
	}
	if r, c := sc.Subcortex.Dims(); r != len(datasetstest.SubcortexLabels) || c != n {
		t.Errorf("subcortex dims = %dx%d", r, c)
	}
	if got := sc.Cortex.At(0, 1); got != datasetstest.CortexMatrix()[0][1] {
		t.Errorf("Cortex[0,1] = %v", got)
	}

	fc, err := l.LoadConnectivity(Functional, datasetstest.Parcellation)
	if err != nil {
		t.Fatalf("LoadConnectivity(fc) error = %v", err)
	}
	if fc.Subcortex != nil {
		t.Error("functional fixture has no subcortical matrix")
	}

	if _, err := l.LoadConnectivity(Structural, "glasser_360"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestLoadConnectivity_LabelMismatch(t *testing.T) {
	l := newTestLoader(t)
	path := l.Path("matrices", "hcp_connectivity", "strucLabels_ctx_"+datasetstest.Parcellation+".csv")
	if err := os.WriteFile(path, []byte("a\nb\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.LoadConnectivity(Structural, datasetstest.Parcellation); !errors.Is(err, ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("FC"); err != nil || k != Functional {
		t.Errorf("ParseKind(FC) = %v, %v", k, err)
	}
	if _, err := ParseKind("dti"); err == nil {
		t.Error("expected error")
	}
}

func TestLoadSummaryStats(t *testing.T) {
	l := newTestLoader(t)
	ss, err := l.LoadSummaryStats(datasetstest.Disorder)
	if err != nil {
		t.Fatalf("LoadSummaryStats() error = %v", err)
	}
	measures := ss.Measures()
	if len(measures) != 2 || measures[0] != datasetstest.CortexMeasure {
		t.Fatalf("measures = %v", measures)
	}
	d, err := ss[datasetstest.CortexMeasure].Column(datasetstest.Column)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d[0]-datasetstest.CortexEffects()[0]) > 1e-9 {
		t.Errorf("d[0] = %v, want %v", d[0], datasetstest.CortexEffects()[0])
	}

	if _, err := l.LoadSummaryStats("adhd"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}

	disorders, err := l.Disorders()
	if err != nil {
		t.Fatal(err)
	}
	if len(disorders) != 1 || disorders[0] != datasetstest.Disorder {
		t.Errorf("Disorders() = %v", disorders)
	}
}

func TestLoadCentroids(t *testing.T) {
	l := newTestLoader(t)
	c, err := l.LoadCentroids(datasetstest.Parcellation)
	if err != nil {
		t.Fatalf("LoadCentroids() error = %v", err)
	}
	if len(c) != len(datasetstest.CortexLabels) {
		t.Errorf("got %d centroids", len(c))
	}
}

func TestLoadCentroids_NonFinite(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"nan", "NaN,0,1"},
		{"missing cell", "0,,1"},
		{"inf", "0,Inf,1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			path := filepath.Join(root, "permutation", "bad_sphere_centroids.csv")
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(path, []byte("1,0,0\n"+tt.row+"\n"), 0644); err != nil {
				t.Fatal(err)
			}
			l, err := New(root, 2)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := l.LoadCentroids("bad"); !errors.Is(err, ErrMalformed) {
				t.Errorf("LoadCentroids() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestCache_RereadsModifiedFile(t *testing.T) {
	root := t.TempDir()
	l, err := New(root, 2)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(root, "v.csv")
	if err := os.WriteFile(path, []byte("1\n2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	x, err := l.LoadVector(path)
	if err != nil || len(x) != 2 {
		t.Fatalf("LoadVector() = %v, %v", x, err)
	}

	x[0] = 100
	again, _ := l.LoadVector(path)
	if again[0] != 1 {
		t.Error("cached vector was modified through a returned copy")
	}

	if err := os.WriteFile(path, []byte("1\n2\n3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	x, err = l.LoadVector(path)
	if err != nil || len(x) != 3 {
		t.Errorf("after rewrite LoadVector() = %v, %v", x, err)
	}
}
