package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/enigma/internal/output"
	"github.com/blackwell-systems/enigma/internal/snapshots"
)

var (
	exportFormat string

	exportCmd = &cobra.Command{
		Use:   "export <run-id>",
		Short: "Write a report file for a stored run",
		Long: `Writes a JSON or CSV report of a run to the report directory and
records it. JSON reports carry the run settings, per-region results and a
summary of the null distribution; CSV reports carry the per-region rows.`,
		Example: `  enigma export 3f2a9c
  enigma export 3f2a9c --format csv`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}

	reportsOlderThan time.Duration

	reportsCmd = &cobra.Command{
		Use:   "reports",
		Short: "List exported reports, or remove old ones",
		Example: `  enigma reports
  enigma reports --older-than 720h`,
		RunE: runReports,
	}
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", snapshots.FormatJSON, "report format: json or csv")
	reportsCmd.Flags().DurationVar(&reportsOlderThan, "older-than", 0, "delete reports older than this age")

	RootCmd.AddCommand(exportCmd)
	RootCmd.AddCommand(reportsCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	st, err := openExistingStore()
	if err != nil {
		return err
	}
	defer st.Close()

	mgr := snapshots.New(st, cfg.ReportDir)
	id, path, err := mgr.Create(args[0], exportFormat)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report %d written to %s\n", id, path)
	return nil
}

func runReports(cmd *cobra.Command, args []string) error {
	st, err := openExistingStore()
	if err != nil {
		return err
	}
	defer st.Close()

	mgr := snapshots.New(st, cfg.ReportDir)
	out := cmd.OutOrStdout()

	if reportsOlderThan > 0 {
		n, err := mgr.CleanupOld(reportsOlderThan)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed %d report(s) older than %s\n", n, reportsOlderThan)
		return nil
	}

	reports, err := mgr.List()
	if err != nil {
		return err
	}
	fmt.Fprint(out, output.RenderReportTable(reports))
	return nil
}
