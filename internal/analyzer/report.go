package analyzer

import (
	"fmt"
	"strconv"
)

// Load rebuilds the report of a stored run from its ID or a unique prefix.
func (a *Analyzer) Load(runID string) (*Report, error) {
	run, err := a.store.GetRun(runID)
	if err != nil {
		return nil, err
	}
	results, err := a.store.GetResults(run.ID)
	if err != nil {
		return nil, err
	}
	null, err := a.store.GetNull(run.ID)
	if err != nil {
		return nil, err
	}

	rep := &Report{Run: run, Null: null}
	if m, ok := run.Params["matched"]; ok {
		if rep.Matched, err = strconv.Atoi(m); err != nil {
			return nil, fmt.Errorf("invalid matched count %q for run %s", m, run.ID)
		}
	}
	for _, r := range results {
		rep.Regions = append(rep.Regions, RegionResult{
			Region: r.Region,
			Value:  r.Value,
			R:      r.R,
			P:      r.P,
			Hub:    r.Hub,
		})
	}
	return rep, nil
}
