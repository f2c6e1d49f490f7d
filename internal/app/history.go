package app

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/enigma/internal/analyzer"
	"github.com/blackwell-systems/enigma/internal/output"
	"github.com/blackwell-systems/enigma/internal/store"
)

var (
	historyKind  string
	historyLimit int

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List previous analysis runs",
		Example: `  enigma history
  enigma history --kind epicenter --limit 5`,
		RunE: runHistory,
	}

	showAlpha    float64
	showTop      int
	showShowNull bool

	showCmd = &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the results of a stored run",
		Long: `Prints a stored run as it was printed when it ran. The run ID may be
abbreviated to any unique prefix.`,
		Example: `  enigma show 3f2a9c
  enigma show 3f2a9c --top 10`,
		Args: cobra.ExactArgs(1),
		RunE: runShow,
	}

	deleteCmd = &cobra.Command{
		Use:   "delete <run-id>...",
		Short: "Delete stored runs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDelete,
	}
)

func init() {
	historyCmd.Flags().StringVar(&historyKind, "kind", "", "only runs of this kind: hubs, epicenter, spin or shuffle")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs (0 for all)")

	showCmd.Flags().Float64Var(&showAlpha, "alpha", 0.05, "significance level for epicenter runs")
	showCmd.Flags().IntVar(&showTop, "top", 0, "show only the N strongest epicenter seeds")
	showCmd.Flags().BoolVar(&showShowNull, "show-null", false, "summarise the null distribution")

	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(showCmd)
	RootCmd.AddCommand(deleteCmd)
}

func validKind(kind string) bool {
	for _, k := range []string{store.KindHubs, store.KindEpicenter, store.KindSpin, store.KindShuffle} {
		if kind == k {
			return true
		}
	}
	return false
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyKind != "" && !validKind(historyKind) {
		return fmt.Errorf("invalid kind %q (want hubs, epicenter, spin or shuffle)", historyKind)
	}

	st, err := openExistingStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(historyKind, historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, output.RenderRunTable(runs))
	if total, err := st.CountRuns(); err == nil && total > len(runs) {
		fmt.Fprintf(out, "\nShowing %d of %d runs. Use --limit 0 to list all.\n", len(runs), total)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	st, err := openExistingStore()
	if err != nil {
		return err
	}
	defer st.Close()

	a, err := newAnalyzer(st, analyzer.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}
	rep, err := a.Load(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, output.RenderRunSummary(rep))
	switch rep.Run.Kind {
	case store.KindHubs:
		fmt.Fprintln(out)
		fmt.Fprint(out, output.RenderHubTable(rep))
	case store.KindEpicenter:
		fmt.Fprintln(out)
		fmt.Fprint(out, output.RenderEpicenterTable(rep, showAlpha, showTop))
	}
	if showShowNull {
		fmt.Fprintln(out)
		fmt.Fprint(out, output.RenderNullSummary(rep.Null, rep.Run.R))
	}

	if keys := paramKeys(rep.Run.Params); len(keys) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Parameters:")
		for _, k := range keys {
			fmt.Fprintf(out, "  %-14s %s\n", k, rep.Run.Params[k])
		}
	}
	return nil
}

func paramKeys(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runDelete(cmd *cobra.Command, args []string) error {
	st, err := openExistingStore()
	if err != nil {
		return err
	}
	defer st.Close()

	for _, id := range args {
		run, err := st.GetRun(id)
		if err != nil {
			return err
		}
		if err := st.DeleteRun(run.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s run %s\n", run.Kind, run.ID)
	}
	return nil
}
