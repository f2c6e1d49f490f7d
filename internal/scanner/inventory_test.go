package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blackwell-systems/enigma/internal/datasets/datasetstest"
)

func TestNew(t *testing.T) {
	s := New("/data")
	if s.Root() != "/data" {
		t.Fatalf("Root() = %q", s.Root())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		path     string
		wantCat  Category
		wantName string
	}{
		{"parcellations/schaefer_100_conte69.csv", Parcellations, "schaefer_100"},
		{"surfaces/conte69_32k_lh_mask.csv", Masks, "midline (lh)"},
		{"surfaces/conte69_32k_rh_ctx_mask.csv", Masks, "ctx (rh)"},
		{"surfaces/conte69_32k_lh_sphere.gii", Surfaces, "conte69_32k_lh_sphere"},
		{"matrices/main_group/conte69_32k_thickness.csv", Features, "conte69_32k_thickness"},
		{"matrices/hcp_connectivity/strucMatrix_ctx_aparc.csv", Connectivity, "strucMatrix_ctx_aparc"},
		{"summary_statistics/22q_case-controls_CortThick.csv", SummaryStats, "22q_case-controls_CortThick"},
		{"permutation/aparc_sphere_centroids.csv", Centroids, "aparc"},
		{"README.md", Other, "README.md"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			cat, name := Classify(tt.path)
			if cat != tt.wantCat || name != tt.wantName {
				t.Errorf("Classify(%q) = %s, %q; want %s, %q", tt.path, cat, name, tt.wantCat, tt.wantName)
			}
		})
	}
}

func TestScan(t *testing.T) {
	root := datasetstest.Write(t)
	if err := os.WriteFile(filepath.Join(root, ".DS_Store"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	inv, err := New(root).Scan()
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}

	counts := inv.Counts()
	if counts[Connectivity] != 6 {
		t.Errorf("connectivity files = %d, want 6", counts[Connectivity])
	}
	if counts[Surfaces] != 8 {
		t.Errorf("surfaces = %d, want 8", counts[Surfaces])
	}
	if counts[Masks] != 4 {
		t.Errorf("masks = %d, want 4", counts[Masks])
	}
	if counts[Other] != 0 {
		t.Errorf("hidden file should be skipped, got %d other files", counts[Other])
	}
	if inv.TotalSize() <= 0 {
		t.Error("TotalSize() should be positive")
	}

	// Entries are grouped by category order.
	last := -1
	for _, e := range inv.Entries {
		idx := categoryIndex(e.Category)
		if idx < last {
			t.Fatalf("entries out of category order at %s", e.Path)
		}
		last = idx
	}

	sets := inv.ConnectivitySets()
	if len(sets["sc"]) != 1 || sets["sc"][0] != datasetstest.Parcellation {
		t.Errorf("ConnectivitySets()[sc] = %v", sets["sc"])
	}
	if len(sets["fc"]) != 1 {
		t.Errorf("ConnectivitySets()[fc] = %v", sets["fc"])
	}

	if d := inv.Disorders(); len(d) != 1 || d[0] != datasetstest.Disorder {
		t.Errorf("Disorders() = %v", d)
	}

	if m := inv.Missing("sc", datasetstest.Parcellation); len(m) != 0 {
		t.Errorf("Missing() = %v, want none", m)
	}
}

func TestMissing(t *testing.T) {
	root := datasetstest.Write(t)
	if err := os.Remove(filepath.Join(root, "permutation", datasetstest.Parcellation+"_sphere_centroids.csv")); err != nil {
		t.Fatal(err)
	}

	inv, err := New(root).Scan()
	if err != nil {
		t.Fatal(err)
	}
	// Centroids can still be computed from the atlas and the sphere.
	if m := inv.Missing("sc", datasetstest.Parcellation); len(m) != 0 {
		t.Errorf("Missing() = %v, want none", m)
	}

	m := inv.Missing("fc", "glasser_360")
	if len(m) != 3 {
		t.Errorf("Missing(glasser_360) = %v, want 3 entries", m)
	}
}

func TestScan_NotADirectory(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(f).Scan(); err == nil {
		t.Error("expected error for a file")
	}
	if _, err := New(filepath.Join(t.TempDir(), "missing")).Scan(); err == nil {
		t.Error("expected error for a missing directory")
	}
}
