package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/enigma/internal/output"
	"github.com/blackwell-systems/enigma/internal/scanner"
)

var (
	datasetsVerbose bool

	datasetsCmd = &cobra.Command{
		Use:   "datasets",
		Short: "List the data files available in the data directory",
		Long: `Scans the data directory and summarises what it holds: parcellations,
masks, surfaces, features, connectivity matrices, summary statistics and
precomputed sphere centroids.`,
		Example: `  enigma datasets
  enigma datasets --verbose
  enigma datasets --data-dir /data/enigma`,
		RunE: runDatasets,
	}
)

func init() {
	datasetsCmd.Flags().BoolVarP(&datasetsVerbose, "verbose", "v", false, "list every file")

	RootCmd.AddCommand(datasetsCmd)
}

func runDatasets(cmd *cobra.Command, args []string) error {
	spinner := output.NewSpinner("Scanning " + cfg.DataDir)
	spinner.Start()
	inv, err := scanner.New(cfg.DataDir).Scan()
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("failed to scan data directory: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), output.RenderInventory(inv, datasetsVerbose))
	return nil
}
