package analyzer

import (
	"fmt"

	"github.com/blackwell-systems/enigma/internal/datasets"
	"github.com/blackwell-systems/enigma/internal/store"
)

// Scope selects cortical or subcortical regions.
type Scope string

const (
	Cortex    Scope = "cortex"
	Subcortex Scope = "subcortex"
)

// Spin methods, also used as permutation cache keys.
const (
	MethodRotate  = "rotate"
	MethodVertex  = "vertex"
	MethodShuffle = "shuffle"
)

// MapSource names a disease map: either a column of an ENIGMA summary
// statistics table or a vector file with one value per region.
type MapSource struct {
	Disorder string
	// Measure is the table name after the disorder prefix, such as
	// "case-controls_CortThick". Empty picks the cortical thickness table
	// for cortex and the subcortical volume table for subcortex.
	Measure string
	Column  string
	// Path, when set, takes precedence over the summary statistics.
	Path string
}

// String describes the source for run records.
func (m MapSource) String() string {
	if m.Path != "" {
		return m.Path
	}
	return fmt.Sprintf("%s/%s:%s", m.Disorder, m.Measure, m.Column)
}

// HubRequest configures a hub susceptibility run.
type HubRequest struct {
	Kind         datasets.Kind
	Parcellation string
	Map          MapSource
	Scope        Scope
}

// EpicenterRequest configures an epicenter mapping run. The disease map is
// always cortical; Scope selects which seeds are profiled.
type EpicenterRequest struct {
	Kind         datasets.Kind
	Parcellation string
	Map          MapSource
	Scope        Scope
}

// SpinRequest configures a plain permutation test between two maps.
type SpinRequest struct {
	X, Y string
	// Parcellation names the centroids used by the rotate method.
	Parcellation string
	Method       string
}

// RegionResult is one region's row of a report.
type RegionResult struct {
	Region string
	// Value is the degree for hub runs and the disease map value for
	// epicenter runs.
	Value float64
	R     float64
	P     float64
	Hub   bool
}

// Report is the outcome of a run.
type Report struct {
	Run     *store.Run
	Regions []RegionResult
	Null    []float64
	// Matched is the number of regions with a disease map value.
	Matched int
}

// Significant returns the regions with p below alpha.
func (r *Report) Significant(alpha float64) []RegionResult {
	var out []RegionResult
	for _, reg := range r.Regions {
		if reg.P < alpha {
			out = append(out, reg)
		}
	}
	return out
}

// Hubs returns the regions flagged as hubs.
func (r *Report) Hubs() []RegionResult {
	var out []RegionResult
	for _, reg := range r.Regions {
		if reg.Hub {
			out = append(out, reg)
		}
	}
	return out
}
