package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/enigma/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Prints the configuration after merging defaults, the config file,
ENIGMA_* environment variables and global flags.`,
	RunE: runConfig,
}

func init() {
	RootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if dir, err := config.Dir(); err == nil {
		fmt.Fprintf(out, "%-20s %s\n", "config_dir", dir)
	}
	rows := []struct {
		key   string
		value interface{}
	}{
		{"data_dir", cfg.DataDir},
		{"db_path", cfg.DBPath},
		{"report_dir", cfg.ReportDir},
		{"n_rot", cfg.NRot},
		{"seed", cfg.Seed},
		{"correlation", cfg.Correlation},
		{"workers", cfg.Workers},
		{"alpha", cfg.Alpha},
		{"hub_threshold", cfg.HubThreshold},
		{"log_level", cfg.LogLevel},
		{"watch.debounce", cfg.Watch.Debounce},
		{"watch.analysis", cfg.Watch.Analysis},
		{"watch.kind", cfg.Watch.Kind},
		{"watch.parcellation", cfg.Watch.Parcellation},
		{"watch.disorder", cfg.Watch.Disorder},
		{"watch.measure", cfg.Watch.Measure},
		{"watch.column", cfg.Watch.Column},
		{"watch.map", cfg.Watch.MapPath},
	}
	for _, r := range rows {
		fmt.Fprintf(out, "%-20s %v\n", r.key, r.value)
	}
	return nil
}
