package analyzer

import (
	"fmt"
	"math"
	"strings"

	"github.com/blackwell-systems/enigma/internal/datasets"
	"github.com/blackwell-systems/enigma/internal/log"
)

// regionSuffixes are appended to structure names in ENIGMA tables.
var regionSuffixes = []string{"_thickavg", "_surfavg", "_grayvol"}

// canonical normalises a region name for matching.
func (a *Analyzer) canonical(name string) string {
	n := a.aliases.Canonical(strings.TrimSpace(name))
	lower := strings.ToLower(n)
	for _, suf := range regionSuffixes {
		if strings.HasSuffix(lower, suf) {
			n = n[:len(n)-len(suf)]
			break
		}
	}
	return strings.ToLower(a.aliases.Canonical(n))
}

// align orders values named by names to match labels. Labels with no value
// get NaN. It returns the aligned map and how many labels matched.
func (a *Analyzer) align(names []string, values []float64, labels []string) ([]float64, int) {
	byName := make(map[string]float64, len(names))
	for i, n := range names {
		byName[a.canonical(n)] = values[i]
	}
	out := make([]float64, len(labels))
	matched := 0
	for i, lab := range labels {
		v, ok := byName[a.canonical(lab)]
		if !ok {
			out[i] = math.NaN()
			log.Debugf("no disease map value for region %s", lab)
			continue
		}
		out[i] = v
		if !math.IsNaN(v) {
			matched++
		}
	}
	return out, matched
}

// defaultMeasure picks the summary statistics table for a scope.
func defaultMeasure(ss datasets.SummaryStats, scope Scope) (string, error) {
	want := "CortThick"
	if scope == Subcortex {
		want = "SubVol"
	}
	for _, m := range ss.Measures() {
		if strings.Contains(m, want) {
			return m, nil
		}
	}
	return "", fmt.Errorf("no %s table among %s", want, strings.Join(ss.Measures(), ", "))
}

// diseaseMap resolves src into one value per label.
func (a *Analyzer) diseaseMap(src MapSource, labels []string, scope Scope) ([]float64, int, string, error) {
	if src.Path != "" {
		x, err := a.loader.LoadVector(src.Path)
		if err != nil {
			return nil, 0, "", fmt.Errorf("failed to load disease map: %w", err)
		}
		if len(x) != len(labels) {
			return nil, 0, "", fmt.Errorf("disease map %s has %d values, connectivity has %d regions", src.Path, len(x), len(labels))
		}
		n := 0
		for _, v := range x {
			if !math.IsNaN(v) {
				n++
			}
		}
		return x, n, src.Path, nil
	}

	if src.Disorder == "" {
		return nil, 0, "", fmt.Errorf("disease map needs a disorder or a map file")
	}
	ss, err := a.loader.LoadSummaryStats(src.Disorder)
	if err != nil {
		return nil, 0, "", err
	}
	if src.Measure == "" {
		if src.Measure, err = defaultMeasure(ss, scope); err != nil {
			return nil, 0, "", err
		}
	}
	if src.Column == "" {
		src.Column = "d_icv"
	}
	tbl, ok := ss[src.Measure]
	if !ok {
		return nil, 0, "", fmt.Errorf("no summary statistics %q for %s (have %s)", src.Measure, src.Disorder, strings.Join(ss.Measures(), ", "))
	}
	names, err := tbl.Strings("Structure")
	if err != nil {
		return nil, 0, "", err
	}
	values, err := tbl.Column(src.Column)
	if err != nil {
		return nil, 0, "", err
	}

	aligned, matched := a.align(names, values, labels)
	if matched == 0 {
		return nil, 0, "", fmt.Errorf("no region of %s matches the connectivity labels", src)
	}
	if matched < len(labels) {
		log.Warningf("%d of %d regions have no value in %s", len(labels)-matched, len(labels), src)
	}
	return aligned, matched, src.String(), nil
}
