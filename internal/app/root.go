package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/enigma/internal/config"
	"github.com/blackwell-systems/enigma/internal/log"
)

var (
	cfgFile  string
	dbPath   string
	dataDir  string
	logLevel string

	// cfg is loaded before every subcommand runs.
	cfg *config.Config

	// RootCmd is the root command for enigma
	RootCmd = &cobra.Command{
		Use:   "enigma",
		Short: "Network models of disease maps on ENIGMA summary statistics",
		Long: `enigma relates cortical and subcortical disease maps to the human
connectome. It correlates ENIGMA case-control effect sizes with hub
(degree centrality) and epicenter (seed connectivity) profiles derived from
HCP structural and functional connectivity, and tests the correlations with
spatial permutation (spin) null models.

Every run is stored with its null distribution so results can be listed,
inspected and exported later. Spin permutations are cached per
parcellation, rotation count and seed.

Quick Start:
  1. enigma datasets             # check the data directory
  2. enigma doctor               # confirm the data needed for analysis
  3. enigma hubs --disorder 22q  # hub susceptibility
  4. enigma epicenter --disorder 22q

Examples:
  # Functional hubs against a custom effect-size map, 5000 spins
  enigma hubs --kind fc --map effects.csv --n-rot 5000

  # Top 10 subcortical epicenters
  enigma epicenter --disorder epilepsy --scope subcortex --top 10

  # Spin test between two parcellated maps
  enigma spin thickness.csv myelin.csv --parcellation aparc

  # Export a run
  enigma export 3f2a --format csv`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("enigma: network models of ENIGMA disease maps")
			fmt.Println()
			if _, err := os.Stat(cfg.DataDir); os.IsNotExist(err) {
				fmt.Printf("Data directory %s does not exist.\n", cfg.DataDir)
				fmt.Println("Set data_dir in the config file or pass --data-dir.")
			} else {
				fmt.Println("Tip: Run 'enigma doctor' to check the data directory.")
				fmt.Println("     Run 'enigma history' to list previous runs.")
			}
			fmt.Println("     Run 'enigma --help' for all commands.")
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/enigma/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ~/.enigma/enigma.db)")
	RootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "ENIGMA data directory (default: ~/.enigma/data)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warning or error")

	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// loadConfig reads the config file and applies the global flag overrides.
func loadConfig(cmd *cobra.Command, args []string) error {
	log.Default()

	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if dbPath != "" {
		c.DBPath = dbPath
	}
	if dataDir != "" {
		c.DataDir = dataDir
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if err := log.SetLevel(log.ParseLevel(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	cfg = c
	return nil
}
