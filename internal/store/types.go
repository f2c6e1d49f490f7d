package store

import "time"

// Run kinds.
const (
	KindHubs      = "hubs"
	KindEpicenter = "epicenter"
	KindSpin      = "spin"
	KindShuffle   = "shuffle"
)

// Run statuses.
const (
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Run is one analysis invocation.
type Run struct {
	ID           string
	Kind         string
	CreatedAt    time.Time
	Connectivity string // "sc" or "fc"; empty for plain spin tests
	Parcellation string
	Source       string // disease map description
	Correlation  string
	NRot         int
	Seed         int64
	// R and P summarise the run; NaN for epicenter runs.
	R      float64
	P      float64
	Status string
	Params map[string]string
}

// Result is one region's row of a run.
type Result struct {
	RunID  string
	Index  int
	Region string
	// Value is the degree (hub runs) or the disease map value.
	Value float64
	R     float64
	P     float64
	Hub   bool
}

// Report records a report file written for a run.
type Report struct {
	ID        int64
	RunID     string
	CreatedAt time.Time
	Format    string
	Path      string
}

// SpinKey identifies a cached permutation set.
type SpinKey struct {
	Parcellation string
	Method       string // "rotate", "vertex" or "shuffle"
	NRot         int
	Seed         int64
}
