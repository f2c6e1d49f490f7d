package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/enigma/internal/analyzer"
	"github.com/blackwell-systems/enigma/internal/datasets"
	"github.com/blackwell-systems/enigma/internal/output"
)

var (
	epiAnalysis analysisFlags
	epiMap      mapFlags
	epiKind     string
	epiParc     string
	epiScope    string
	epiTop      int
	epiAlpha    float64

	epicenterCmd = &cobra.Command{
		Use:   "epicenter",
		Short: "Map disease epicenters from seed connectivity",
		Long: `Correlates each seed region's connectivity profile with the cortical
disease map. Seeds whose profile tracks the map (high r, significant spin p)
are candidate epicenters: regions whose connections reach the most affected
cortex.

With --scope subcortex the seeds are subcortical structures and their
profiles are their connections to every cortical region.`,
		Example: `  # Cortical epicenters of 22q11.2 thickness effects
  enigma epicenter --disorder 22q

  # Top 5 subcortical seeds, functional connectivity
  enigma epicenter --disorder 22q --scope subcortex --kind fc --top 5`,
		RunE: runEpicenter,
	}
)

func init() {
	epiAnalysis.register(epicenterCmd)
	epiMap.register(epicenterCmd)
	epicenterCmd.Flags().StringVar(&epiKind, "kind", "sc", "connectivity: sc (structural) or fc (functional)")
	epicenterCmd.Flags().StringVar(&epiParc, "parcellation", "aparc", "parcellation of the connectivity matrices")
	epicenterCmd.Flags().StringVar(&epiScope, "scope", "cortex", "seed regions: cortex or subcortex")
	epicenterCmd.Flags().IntVar(&epiTop, "top", 0, "show only the N strongest seeds (default: all)")
	epicenterCmd.Flags().Float64Var(&epiAlpha, "alpha", 0, "significance level (default from config: 0.05)")

	RootCmd.AddCommand(epicenterCmd)
}

func runEpicenter(cmd *cobra.Command, args []string) error {
	kind, err := datasets.ParseKind(epiKind)
	if err != nil {
		return err
	}
	scope, err := parseScope(epiScope)
	if err != nil {
		return err
	}
	src, err := epiMap.source()
	if err != nil {
		return err
	}
	opts, err := epiAnalysis.options(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("alpha") {
		if epiAlpha <= 0 || epiAlpha >= 1 {
			return fmt.Errorf("--alpha must be between 0 and 1")
		}
		opts.Alpha = epiAlpha
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	a, err := newAnalyzer(st, opts)
	if err != nil {
		return err
	}

	rep, err := a.Epicenters(cmd.Context(), analyzer.EpicenterRequest{
		Kind:         kind,
		Parcellation: epiParc,
		Map:          src,
		Scope:        scope,
	})
	if err != nil {
		return fmt.Errorf("epicenter mapping failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, output.RenderRunSummary(rep))
	fmt.Fprintln(out)
	fmt.Fprint(out, output.RenderEpicenterTable(rep, a.Options().Alpha, epiTop))
	return nil
}
