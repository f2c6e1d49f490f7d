package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/enigma/internal/analyzer"
	"github.com/blackwell-systems/enigma/internal/config"
	"github.com/blackwell-systems/enigma/internal/datasets"
	"github.com/blackwell-systems/enigma/internal/log"
	"github.com/blackwell-systems/enigma/internal/output"
	"github.com/blackwell-systems/enigma/internal/stats"
	"github.com/blackwell-systems/enigma/internal/store"
)

// openStore opens the database, creating it and its schema if needed.
func openStore() (*store.Store, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}
	return st, nil
}

// openExistingStore opens the database for read-mostly commands, which
// have nothing to show before the first analysis.
func openExistingStore() (*store.Store, error) {
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		return nil, store.ErrNotInitialized
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

func newLoader() (*datasets.Loader, error) {
	loader, err := datasets.New(cfg.DataDir, datasets.DefaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}
	return loader, nil
}

// analysisFlags are the permutation settings shared by analysis commands.
// Unset flags fall back to the config file.
type analysisFlags struct {
	nRot        int
	seed        int64
	correlation string
	workers     int
	noProgress  bool
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.nRot, "n-rot", 0, "number of spin rotations or shuffles (default from config: 1000)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "permutation seed")
	cmd.Flags().StringVar(&f.correlation, "correlation", "", "correlation: pearson or spearman")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "parallel permutation workers (default: number of CPUs)")
	cmd.Flags().BoolVar(&f.noProgress, "no-progress", false, "do not show permutation progress")
}

func (f *analysisFlags) options(cmd *cobra.Command) (analyzer.Options, error) {
	opts := analyzer.OptionsFromConfig(cfg)
	if cmd.Flags().Changed("n-rot") {
		if f.nRot < 1 {
			return opts, fmt.Errorf("--n-rot must be at least 1")
		}
		opts.NRot = f.nRot
	}
	if cmd.Flags().Changed("seed") {
		opts.Seed = f.seed
	}
	if f.correlation != "" {
		kind, err := stats.ParseKind(f.correlation)
		if err != nil {
			return opts, err
		}
		opts.Correlation = kind
	}
	if f.workers > 0 {
		opts.Workers = f.workers
	}
	if !f.noProgress {
		opts.Progress = output.NewProgress(opts.NRot, "Generating permutations").Callback()
	}
	return opts, nil
}

// newAnalyzer wires a store, a loader and the region aliases together.
func newAnalyzer(st *store.Store, opts analyzer.Options) (*analyzer.Analyzer, error) {
	loader, err := newLoader()
	if err != nil {
		return nil, err
	}
	a := analyzer.New(st, loader, opts)

	if dir, err := config.Dir(); err == nil {
		aliases, err := config.LoadAliases(dir)
		if err != nil {
			log.Warningf("failed to load region aliases: %v", err)
		} else {
			a.SetAliases(aliases)
		}
	}
	return a, nil
}

// mapFlags name the disease map of hub and epicenter runs.
type mapFlags struct {
	disorder string
	measure  string
	column   string
	path     string
}

func (f *mapFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.disorder, "disorder", "", "ENIGMA disorder with summary statistics (e.g. 22q, epilepsy)")
	cmd.Flags().StringVar(&f.measure, "measure", "", "summary statistics table (default: cortical thickness or subcortical volume)")
	cmd.Flags().StringVar(&f.column, "column", "d_icv", "effect size column")
	cmd.Flags().StringVar(&f.path, "map", "", "CSV file with one value per region, instead of summary statistics")
}

func (f *mapFlags) source() (analyzer.MapSource, error) {
	if f.disorder == "" && f.path == "" {
		return analyzer.MapSource{}, fmt.Errorf("a disease map is required: pass --disorder or --map")
	}
	return analyzer.MapSource{
		Disorder: f.disorder,
		Measure:  f.measure,
		Column:   f.column,
		Path:     f.path,
	}, nil
}

func parseScope(s string) (analyzer.Scope, error) {
	switch analyzer.Scope(s) {
	case analyzer.Cortex, analyzer.Subcortex:
		return analyzer.Scope(s), nil
	}
	return "", fmt.Errorf("invalid scope %q (want cortex or subcortex)", s)
}
