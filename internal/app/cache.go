package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/enigma/internal/output"
)

var (
	cacheClear bool

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "List or clear cached spin permutations",
		Long: `Spin permutations are expensive to generate, so every set is cached
under its parcellation, method, rotation count and seed. Runs with the same
settings reuse the cached set and therefore share their null model.`,
		Example: `  enigma cache
  enigma cache --clear`,
		RunE: runCache,
	}
)

func init() {
	cacheCmd.Flags().BoolVar(&cacheClear, "clear", false, "remove every cached permutation set")

	RootCmd.AddCommand(cacheCmd)
}

func runCache(cmd *cobra.Command, args []string) error {
	st, err := openExistingStore()
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if cacheClear {
		n, err := st.ClearSpins()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed %d cached permutation set(s)\n", n)
		return nil
	}

	spins, err := st.ListSpins()
	if err != nil {
		return err
	}
	fmt.Fprint(out, output.RenderSpinCacheTable(spins))
	return nil
}
