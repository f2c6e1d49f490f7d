// Package snapshots writes point-in-time reports of analysis runs to disk
// and indexes them in the store.
package snapshots

import (
	"encoding/json"
	"math"
	"time"

	"github.com/blackwell-systems/enigma/internal/store"
)

// Report formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Float is a float64 that encodes NaN as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// ReportData is the JSON structure stored in report files.
type ReportData struct {
	CreatedAt time.Time   `json:"created_at"`
	Run       RunInfo     `json:"run"`
	Regions   []RegionRow `json:"regions"`
	Null      *NullInfo   `json:"null,omitempty"`
}

// RunInfo mirrors a stored run.
type RunInfo struct {
	ID           string            `json:"id"`
	Kind         string            `json:"kind"`
	CreatedAt    time.Time         `json:"created_at"`
	Connectivity string            `json:"connectivity,omitempty"`
	Parcellation string            `json:"parcellation,omitempty"`
	Source       string            `json:"source"`
	Correlation  string            `json:"correlation"`
	NRot         int               `json:"n_rot"`
	Seed         int64             `json:"seed"`
	R            Float             `json:"r"`
	P            Float             `json:"p"`
	Params       map[string]string `json:"params,omitempty"`
}

// RegionRow is one region of a report.
type RegionRow struct {
	Region string `json:"region"`
	Value  Float  `json:"value"`
	R      Float  `json:"r"`
	P      Float  `json:"p"`
	Hub    bool   `json:"hub,omitempty"`
}

// NullInfo summarises a null distribution.
type NullInfo struct {
	N    int   `json:"n"`
	Mean Float `json:"mean"`
	SD   Float `json:"sd"`
	Q025 Float `json:"q025"`
	Q975 Float `json:"q975"`
}

// Manager manages report creation, listing and cleanup.
type Manager struct {
	store     *store.Store
	reportDir string
}

// New creates a new report Manager.
func New(store *store.Store, reportDir string) *Manager {
	return &Manager{
		store:     store,
		reportDir: reportDir,
	}
}
