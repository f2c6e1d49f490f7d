package analyzer

import (
	"runtime"

	"github.com/blackwell-systems/enigma/internal/config"
	"github.com/blackwell-systems/enigma/internal/datasets"
	"github.com/blackwell-systems/enigma/internal/stats"
	"github.com/blackwell-systems/enigma/internal/store"
)

// Options are the statistical settings of an Analyzer.
type Options struct {
	NRot         int
	Seed         int64
	Correlation  stats.Kind
	Workers      int
	Alpha        float64
	HubThreshold float64
	// Progress, when set, receives permutation generation progress.
	Progress func(done, total int)
}

// OptionsFromConfig copies the analysis settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		NRot:         cfg.NRot,
		Seed:         cfg.Seed,
		Correlation:  stats.Kind(cfg.Correlation),
		Workers:      cfg.Workers,
		Alpha:        cfg.Alpha,
		HubThreshold: cfg.HubThreshold,
	}
}

// Analyzer runs the network models against data from a loader and records
// every run in the store.
type Analyzer struct {
	store   *store.Store
	loader  *datasets.Loader
	opts    Options
	aliases *config.AliasConfig
}

// New creates a new Analyzer instance.
func New(store *store.Store, loader *datasets.Loader, opts Options) *Analyzer {
	if opts.NRot <= 0 {
		opts.NRot = 1000
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Alpha <= 0 {
		opts.Alpha = 0.05
	}
	if opts.Correlation == "" {
		opts.Correlation = stats.Pearson
	}
	return &Analyzer{store: store, loader: loader, opts: opts}
}

// SetAliases installs region name aliases used when matching disease maps
// to connectivity labels.
func (a *Analyzer) SetAliases(aliases *config.AliasConfig) {
	a.aliases = aliases
}

// Options returns the effective settings.
func (a *Analyzer) Options() Options {
	return a.opts
}
