// Package output renders analysis results for the terminal.
//
// This package includes:
//   - Table rendering for hub, epicenter and spin reports
//   - Tables for run history, saved reports, cached spins and the data inventory
//   - Progress bars for permutation generation and spinners for loading
//
// Renderers return strings so commands decide where they go. ANSI colors
// are only emitted when stdout is a terminal and NO_COLOR is unset.
package output

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/enigma/internal/analyzer"
	"github.com/blackwell-systems/enigma/internal/scanner"
	"github.com/blackwell-systems/enigma/internal/store"
)

// ANSI color codes for significance display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderRunSummary renders the header block of a report.
func RenderRunSummary(rep *analyzer.Report) string {
	run := rep.Run
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Run:          %s (%s)\n", run.ID, run.Kind))
	if run.Connectivity != "" {
		sb.WriteString(fmt.Sprintf("Connectivity: %s, %s\n", connectivityName(run.Connectivity), run.Parcellation))
	} else if run.Parcellation != "" {
		sb.WriteString(fmt.Sprintf("Parcellation: %s\n", run.Parcellation))
	}
	sb.WriteString(fmt.Sprintf("Map:          %s\n", run.Source))
	if len(rep.Regions) > 0 {
		sb.WriteString(fmt.Sprintf("Regions:      %d (%d with map values)\n", len(rep.Regions), rep.Matched))
	} else {
		sb.WriteString(fmt.Sprintf("Regions:      %d complete pairs\n", rep.Matched))
	}
	method := run.Params["method"]
	if method == "" {
		method = "rotate"
		if run.Params["scope"] == string(analyzer.Subcortex) && run.Kind == store.KindHubs {
			method = "shuffle"
		}
	}
	sb.WriteString(fmt.Sprintf("Null model:   %d %s permutations, seed %d\n", run.NRot, method, run.Seed))

	if !math.IsNaN(run.R) {
		sb.WriteString(fmt.Sprintf("Correlation:  %s r = %s, p = %s\n",
			run.Correlation, formatFloat(run.R), colorP(run.P, 0.05)))
	}
	if p, ok := run.Params["p_parametric"]; ok {
		sb.WriteString(fmt.Sprintf("Parametric p: %s\n", p))
	}
	return sb.String()
}

// RenderHubTable renders degree centrality per region with hubs marked.
// Regions are listed by descending degree.
func RenderHubTable(rep *analyzer.Report) string {
	if len(rep.Regions) == 0 {
		return "No regions found.\n"
	}

	sorted := make([]analyzer.RegionResult, len(rep.Regions))
	copy(sorted, rep.Regions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-32s %10s  %s\n", "Region", "Degree", "Hub"))
	sb.WriteString(strings.Repeat("─", 48))
	sb.WriteString("\n")

	for _, reg := range sorted {
		hub := ""
		if reg.Hub {
			hub = colorize(colorGreen, "✓")
		}
		sb.WriteString(fmt.Sprintf("%-32s %10s  %s\n",
			truncate(reg.Region, 32), formatFloat(reg.Value), hub))
	}

	sb.WriteString(fmt.Sprintf("\n%d of %d regions are hubs\n", len(rep.Hubs()), len(rep.Regions)))
	return sb.String()
}

// RenderEpicenterTable renders seed regions ranked by correlation,
// strongest first. top <= 0 lists every region.
func RenderEpicenterTable(rep *analyzer.Report, alpha float64, top int) string {
	if len(rep.Regions) == 0 {
		return "No regions found.\n"
	}

	ranked := rankRegions(rep.Regions)
	if top > 0 && top < len(ranked) {
		ranked = ranked[:top]
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-4s %-32s %8s %8s %10s\n", "#", "Seed", "r", "p", "Map"))
	sb.WriteString(strings.Repeat("─", 66))
	sb.WriteString("\n")

	for i, reg := range ranked {
		sb.WriteString(fmt.Sprintf("%-4d %-32s %8s %s %10s\n",
			i+1,
			truncate(reg.Region, 32),
			formatFloat(reg.R),
			padLeft(colorP(reg.P, alpha), formatP(reg.P), 8),
			formatFloat(reg.Value)))
	}

	sig := rep.Significant(alpha)
	sb.WriteString(fmt.Sprintf("\n%d of %d seeds significant at p < %g\n", len(sig), len(rep.Regions), alpha))
	return sb.String()
}

// rankRegions orders by descending r with undefined correlations last.
func rankRegions(regions []analyzer.RegionResult) []analyzer.RegionResult {
	out := make([]analyzer.RegionResult, len(regions))
	copy(out, regions)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].R, out[j].R
		if math.IsNaN(rj) {
			return !math.IsNaN(ri)
		}
		if math.IsNaN(ri) {
			return false
		}
		return ri > rj
	})
	return out
}

// RenderNullSummary renders the spread of a null distribution.
func RenderNullSummary(null []float64, r float64) string {
	var finite []float64
	for _, v := range null {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return "Null distribution: empty\n"
	}
	sort.Float64s(finite)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Null distribution: %d values, range [%s, %s]\n",
		len(finite), formatFloat(finite[0]), formatFloat(finite[len(finite)-1])))
	if !math.IsNaN(r) {
		beyond := 0
		for _, v := range finite {
			if math.Abs(v) >= math.Abs(r) {
				beyond++
			}
		}
		sb.WriteString(fmt.Sprintf("|null| >= |r|:     %d (%.1f%%)\n", beyond, 100*float64(beyond)/float64(len(finite))))
	}
	return sb.String()
}

// RenderRunTable renders run history, newest first as given.
func RenderRunTable(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No runs found.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-10s %-10s %-14s %-24s %8s %8s  %s\n",
		"ID", "Kind", "Data", "Map", "r", "p", "Created"))
	sb.WriteString(strings.Repeat("─", 96))
	sb.WriteString("\n")

	for _, run := range runs {
		data := run.Parcellation
		if run.Connectivity != "" {
			data = run.Connectivity + "/" + run.Parcellation
		}
		sb.WriteString(fmt.Sprintf("%-10s %-10s %-14s %-24s %8s %8s  %s\n",
			truncate(run.ID, 8),
			run.Kind,
			truncate(data, 14),
			truncate(run.Source, 24),
			formatFloat(run.R),
			formatP(run.P),
			formatRelativeTime(run.CreatedAt)))
	}
	return sb.String()
}

// RenderReportTable renders saved report files.
func RenderReportTable(reports []*store.Report) string {
	if len(reports) == 0 {
		return "No reports found.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-5s %-10s %-6s %-16s %s\n", "ID", "Run", "Format", "Created", "Path"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, r := range reports {
		sb.WriteString(fmt.Sprintf("%-5d %-10s %-6s %-16s %s\n",
			r.ID,
			truncate(r.RunID, 8),
			r.Format,
			formatRelativeTime(r.CreatedAt),
			r.Path))
	}
	return sb.String()
}

// RenderSpinCacheTable renders cached permutation sets.
func RenderSpinCacheTable(spins []store.CachedSpin) string {
	if len(spins) == 0 {
		return "No cached permutations.\n"
	}

	var sb strings.Builder
	var total int64
	sb.WriteString(fmt.Sprintf("%-20s %-8s %7s %8s %7s %9s  %s\n",
		"Parcellation", "Method", "Perms", "Seed", "Regions", "Size", "Created"))
	sb.WriteString(strings.Repeat("─", 82))
	sb.WriteString("\n")

	for _, s := range spins {
		total += s.Bytes
		sb.WriteString(fmt.Sprintf("%-20s %-8s %7d %8d %7d %9s  %s\n",
			truncate(s.Parcellation, 20),
			s.Method,
			s.NRot,
			s.Seed,
			s.Size,
			formatSize(s.Bytes),
			formatRelativeTime(s.CreatedAt)))
	}
	sb.WriteString(fmt.Sprintf("\n%d cached sets, %s total\n", len(spins), formatSize(total)))
	return sb.String()
}

// RenderInventory renders per-category counts and the connectivity sets
// available under the data directory.
func RenderInventory(inv *scanner.Inventory, verbose bool) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Data directory: %s\n\n", inv.Root))

	if len(inv.Entries) == 0 {
		sb.WriteString("No data files found.\n")
		return sb.String()
	}

	counts := inv.Counts()
	sb.WriteString(fmt.Sprintf("%-16s %6s %10s\n", "Category", "Files", "Size"))
	sb.WriteString(strings.Repeat("─", 34))
	sb.WriteString("\n")
	for _, cat := range scanner.Categories {
		if counts[cat] == 0 {
			continue
		}
		var size int64
		for _, e := range inv.ByCategory(cat) {
			size += e.Size
		}
		sb.WriteString(fmt.Sprintf("%-16s %6d %10s\n", cat, counts[cat], formatSize(size)))
	}
	sb.WriteString(strings.Repeat("─", 34))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%-16s %6s %10s\n", "Total", humanize.Comma(int64(len(inv.Entries))), formatSize(inv.TotalSize())))

	sets := inv.ConnectivitySets()
	if len(sets) > 0 {
		sb.WriteString("\nConnectivity:\n")
		kinds := make([]string, 0, len(sets))
		for k := range sets {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			sb.WriteString(fmt.Sprintf("  %-4s %s\n", k, strings.Join(sets[k], ", ")))
		}
	}
	if disorders := inv.Disorders(); len(disorders) > 0 {
		sb.WriteString(fmt.Sprintf("\nDisorders: %s\n", strings.Join(disorders, ", ")))
	}

	if verbose {
		for _, cat := range scanner.Categories {
			entries := inv.ByCategory(cat)
			if len(entries) == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("\n%s:\n", cat))
			for _, e := range entries {
				sb.WriteString(fmt.Sprintf("  %-48s %10s\n", e.Path, formatSize(e.Size)))
			}
		}
	}
	return sb.String()
}

func connectivityName(kind string) string {
	switch kind {
	case "sc":
		return "structural"
	case "fc":
		return "functional"
	default:
		return kind
	}
}

// formatFloat renders a statistic with three decimals, "-" when undefined.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.3f", v)
}

// formatP renders a p-value, switching to scientific notation below 0.001.
func formatP(p float64) string {
	switch {
	case math.IsNaN(p):
		return "-"
	case p == 0:
		return "0"
	case p < 0.001:
		return fmt.Sprintf("%.1e", p)
	default:
		return fmt.Sprintf("%.3f", p)
	}
}

// colorP colors a p-value green when significant at alpha.
func colorP(p, alpha float64) string {
	s := formatP(p)
	switch {
	case math.IsNaN(p):
		return colorize(colorGray, s)
	case p < alpha:
		return colorize(colorGreen, s)
	case p < 2*alpha:
		return colorize(colorYellow, s)
	default:
		return s
	}
}

// padLeft right-aligns a possibly colored string by its plain width.
func padLeft(colored, plain string, width int) string {
	if n := width - len(plain); n > 0 {
		return strings.Repeat(" ", n) + colored
	}
	return colored
}

// formatSize converts bytes to a human-readable size.
func formatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.Bytes(uint64(bytes))
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	if time.Since(t) < time.Minute {
		return "just now"
	}
	return humanize.Time(t)
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// RenderError renders an error line in red.
func RenderError(msg string) string {
	return colorize(colorRed, "Error: "+msg) + "\n"
}
