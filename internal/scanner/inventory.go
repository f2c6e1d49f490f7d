package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Category groups data files by role.
type Category string

const (
	Parcellations Category = "parcellations"
	Masks         Category = "masks"
	Surfaces      Category = "surfaces"
	Features      Category = "features"
	Connectivity  Category = "connectivity"
	SummaryStats  Category = "summary_statistics"
	Centroids     Category = "centroids"
	Other         Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{Parcellations, Masks, Surfaces, Features, Connectivity, SummaryStats, Centroids, Other}

// Entry is one data file.
type Entry struct {
	Category Category
	Name     string
	// Path is relative to the data directory.
	Path    string
	Size    int64
	ModTime time.Time
}

// Inventory is the result of a scan.
type Inventory struct {
	Root    string
	Entries []Entry
}

// Scan walks the data directory. Hidden files and directories are skipped.
func (s *Scanner) Scan() (*Inventory, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data directory %s is not a directory", s.root)
	}

	inv := &Inventory{Root: s.root}
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != s.root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		cat, name := Classify(rel)
		inv.Entries = append(inv.Entries, Entry{
			Category: cat,
			Name:     name,
			Path:     rel,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan data directory: %w", err)
	}

	sort.Slice(inv.Entries, func(i, j int) bool {
		a, b := inv.Entries[i], inv.Entries[j]
		if a.Category != b.Category {
			return categoryIndex(a.Category) < categoryIndex(b.Category)
		}
		return a.Path < b.Path
	})
	return inv, nil
}

func categoryIndex(c Category) int {
	for i, cat := range Categories {
		if cat == c {
			return i
		}
	}
	return len(Categories)
}

// Classify returns the category and display name of a data file given its
// path relative to the data directory.
// Example: parcellations/schaefer_100_conte69.csv -> parcellations, "schaefer_100"
// Example: surfaces/conte69_32k_lh_mask.csv -> masks, "midline (lh)"
func Classify(rel string) (Category, string) {
	rel = filepath.ToSlash(filepath.Clean(rel))
	dir, file := filepath.Split(filepath.FromSlash(rel))
	dir = strings.Trim(filepath.ToSlash(dir), "/")
	ext := filepath.Ext(file)
	stem := strings.TrimSuffix(file, ext)

	switch {
	case dir == "parcellations" && ext == ".csv":
		return Parcellations, strings.TrimSuffix(stem, "_conte69")
	case dir == "surfaces" && strings.HasSuffix(stem, "_mask"):
		return Masks, maskName(strings.TrimSuffix(stem, "_mask"))
	case dir == "surfaces" && ext == ".gii":
		return Surfaces, stem
	case dir == "matrices/main_group":
		return Features, stem
	case dir == "matrices/hcp_connectivity":
		return Connectivity, stem
	case dir == "summary_statistics" && ext == ".csv":
		return SummaryStats, stem
	case dir == "permutation" && strings.HasSuffix(stem, "_sphere_centroids"):
		return Centroids, strings.TrimSuffix(stem, "_sphere_centroids")
	}
	return Other, rel
}

// maskName turns conte69_32k_lh[_name] into "name (lh)".
func maskName(stem string) string {
	rest := strings.TrimPrefix(stem, "conte69_32k_")
	side, name, _ := strings.Cut(rest, "_")
	if name == "" {
		name = "midline"
	}
	return fmt.Sprintf("%s (%s)", name, side)
}

// ByCategory returns the entries of one category.
func (inv *Inventory) ByCategory(cat Category) []Entry {
	var out []Entry
	for _, e := range inv.Entries {
		if e.Category == cat {
			out = append(out, e)
		}
	}
	return out
}

// Counts returns the number of files per category.
func (inv *Inventory) Counts() map[Category]int {
	out := make(map[Category]int)
	for _, e := range inv.Entries {
		out[e.Category]++
	}
	return out
}

// TotalSize returns the summed size of every file.
func (inv *Inventory) TotalSize() int64 {
	var n int64
	for _, e := range inv.Entries {
		n += e.Size
	}
	return n
}

// ConnectivitySets returns the parcellations that have a cortical
// connectivity matrix, per kind ("sc" or "fc").
func (inv *Inventory) ConnectivitySets() map[string][]string {
	out := make(map[string][]string)
	for _, e := range inv.ByCategory(Connectivity) {
		for prefix, kind := range map[string]string{"strucMatrix_ctx_": "sc", "funcMatrix_ctx_": "fc"} {
			if parc, ok := strings.CutPrefix(e.Name, prefix); ok {
				out[kind] = append(out[kind], parc)
			}
		}
	}
	for k := range out {
		sort.Strings(out[k])
	}
	return out
}

// Disorders returns the disorders with summary statistics.
func (inv *Inventory) Disorders() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range inv.ByCategory(SummaryStats) {
		d, _, ok := strings.Cut(e.Name, "_")
		if ok && !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

// Missing lists the files a spin-tested analysis of parc with connectivity
// kind ("sc" or "fc") needs but the inventory lacks.
func (inv *Inventory) Missing(kind, parc string) []string {
	has := make(map[string]bool, len(inv.Entries))
	for _, e := range inv.Entries {
		has[filepath.ToSlash(e.Path)] = true
	}

	prefix := "struc"
	if kind == "fc" {
		prefix = "func"
	}
	var missing []string
	for _, f := range []string{
		fmt.Sprintf("matrices/hcp_connectivity/%sMatrix_ctx_%s.csv", prefix, parc),
		fmt.Sprintf("matrices/hcp_connectivity/%sLabels_ctx_%s.csv", prefix, parc),
	} {
		if !has[f] {
			missing = append(missing, f)
		}
	}

	centroids := fmt.Sprintf("permutation/%s_sphere_centroids.csv", parc)
	if !has[centroids] {
		fallback := []string{
			fmt.Sprintf("parcellations/%s_conte69.csv", parc),
			"surfaces/conte69_32k_lh_sphere.gii",
			"surfaces/conte69_32k_rh_sphere.gii",
		}
		for _, f := range fallback {
			if !has[f] {
				missing = append(missing, centroids+" (or "+f+")")
				break
			}
		}
	}
	return missing
}
