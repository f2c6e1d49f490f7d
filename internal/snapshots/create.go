package snapshots

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/blackwell-systems/enigma/internal/store"
)

// Build assembles the report of a stored run.
func (m *Manager) Build(runID string) (*ReportData, error) {
	run, err := m.store.GetRun(runID)
	if err != nil {
		return nil, err
	}
	results, err := m.store.GetResults(run.ID)
	if err != nil {
		return nil, err
	}
	null, err := m.store.GetNull(run.ID)
	if err != nil {
		return nil, err
	}

	data := &ReportData{
		CreatedAt: time.Now(),
		Run: RunInfo{
			ID:           run.ID,
			Kind:         run.Kind,
			CreatedAt:    run.CreatedAt,
			Connectivity: run.Connectivity,
			Parcellation: run.Parcellation,
			Source:       run.Source,
			Correlation:  run.Correlation,
			NRot:         run.NRot,
			Seed:         run.Seed,
			R:            Float(run.R),
			P:            Float(run.P),
			Params:       run.Params,
		},
		Regions: make([]RegionRow, len(results)),
		Null:    summarize(null),
	}
	for i, res := range results {
		data.Regions[i] = RegionRow{
			Region: res.Region,
			Value:  Float(res.Value),
			R:      Float(res.R),
			P:      Float(res.P),
			Hub:    res.Hub,
		}
	}
	return data, nil
}

// summarize returns the moments and 95% interval of the defined null values.
func summarize(null []float64) *NullInfo {
	var x []float64
	for _, v := range null {
		if !math.IsNaN(v) {
			x = append(x, v)
		}
	}
	if len(x) == 0 {
		return nil
	}
	sort.Float64s(x)
	mean, sd := stat.MeanStdDev(x, nil)
	return &NullInfo{
		N:    len(x),
		Mean: Float(mean),
		SD:   Float(sd),
		Q025: Float(stat.Quantile(0.025, stat.Empirical, x, nil)),
		Q975: Float(stat.Quantile(0.975, stat.Empirical, x, nil)),
	}
}

// Create writes a report of the run in format (json or csv) and records it
// in the store. It returns the report ID and the file path.
func (m *Manager) Create(runID, format string) (int64, string, error) {
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatCSV {
		return 0, "", fmt.Errorf("unknown report format %q (want json or csv)", format)
	}

	// Ensure report directory exists
	if err := os.MkdirAll(m.reportDir, 0755); err != nil {
		return 0, "", fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := m.Build(runID)
	if err != nil {
		return 0, "", err
	}

	var content []byte
	if format == FormatJSON {
		content, err = json.MarshalIndent(data, "", "  ")
	} else {
		content, err = encodeCSV(data)
	}
	if err != nil {
		return 0, "", fmt.Errorf("failed to encode report: %w", err)
	}

	// Report filename: KIND-SHORTID-YYYY-MM-DD-HHMMSS.EXT
	name := fmt.Sprintf("%s-%s-%s.%s", data.Run.Kind, shortID(data.Run.ID), time.Now().Format("2006-01-02-150405"), format)
	path := filepath.Join(m.reportDir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return 0, "", fmt.Errorf("failed to write report file: %w", err)
	}

	id, err := m.store.InsertReport(data.Run.ID, format, path)
	if err != nil {
		// Try to clean up the file if DB insert fails
		os.Remove(path)
		return 0, "", fmt.Errorf("failed to insert report into database: %w", err)
	}
	return id, path, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatFloat(v Float) string {
	if math.IsNaN(float64(v)) {
		return ""
	}
	return strconv.FormatFloat(float64(v), 'g', -1, 64)
}

func encodeCSV(data *ReportData) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"region", "value", "r", "p", "hub"}); err != nil {
		return nil, err
	}
	for _, row := range data.Regions {
		if err := w.Write([]string{
			row.Region,
			formatFloat(row.Value),
			formatFloat(row.R),
			formatFloat(row.P),
			strconv.FormatBool(row.Hub),
		}); err != nil {
			return nil, err
		}
	}
	// Runs without regions (plain spin tests) get their summary as one row.
	if len(data.Regions) == 0 {
		if err := w.Write([]string{"", "", formatFloat(data.Run.R), formatFloat(data.Run.P), "false"}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// Load reads and parses a JSON report file.
func Load(path string) (*ReportData, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}

	var data ReportData
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("failed to parse report JSON: %w", err)
	}
	return &data, nil
}

// List returns all reports ordered by creation time (newest first).
func (m *Manager) List() ([]*store.Report, error) {
	reports, err := m.store.ListReports("")
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// CleanupOld removes report files and records older than maxAge and returns
// how many were removed.
func (m *Manager) CleanupOld(maxAge time.Duration) (int, error) {
	reports, err := m.store.ListReports("")
	if err != nil {
		return 0, fmt.Errorf("failed to list reports: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	deleted := 0
	for _, r := range reports {
		if !r.CreatedAt.Before(cutoff) {
			continue
		}
		// Remove the file if it exists
		if err := os.Remove(r.Path); err != nil && !os.IsNotExist(err) {
			return deleted, fmt.Errorf("failed to delete report file %s: %w", r.Path, err)
		}
		if err := m.store.DeleteReport(r.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
