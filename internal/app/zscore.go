package app

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/blackwell-systems/enigma/internal/datasets"
	"github.com/blackwell-systems/enigma/internal/stats"
)

var (
	zscoreGroup   string
	zscoreControl string
	zscoreColumns []string
	zscoreExclude []string
	zscoreOutput  string

	zscoreCmd = &cobra.Command{
		Use:   "zscore <subjects.csv>",
		Short: "Z-score subject data against the control group",
		Long: `Reads a subject table (one row per subject, one column per region) and
z-scores every region column against the mean and standard deviation of the
control subjects.

The table is written back with the region columns replaced by z-scores.
Columns whose control standard deviation is zero come out as NA.`,
		Example: `  # Controls have Dx = 0
  enigma zscore subjects.csv --group Dx --control 0 -o zscores.csv

  # Only two columns
  enigma zscore subjects.csv --columns L_insula,R_insula`,
		Args: cobra.ExactArgs(1),
		RunE: runZScore,
	}
)

func init() {
	zscoreCmd.Flags().StringVar(&zscoreGroup, "group", "Dx", "column holding the group of each subject")
	zscoreCmd.Flags().StringVar(&zscoreControl, "control", "0", "group value marking control subjects")
	zscoreCmd.Flags().StringSliceVar(&zscoreColumns, "columns", nil, "columns to z-score (default: every numeric column)")
	zscoreCmd.Flags().StringSliceVar(&zscoreExclude, "exclude", []string{"SubjID", "Age", "Sex", "Site"}, "numeric columns left untouched")
	zscoreCmd.Flags().StringVarP(&zscoreOutput, "output", "o", "", "output file (default: stdout)")

	RootCmd.AddCommand(zscoreCmd)
}

func runZScore(cmd *cobra.Command, args []string) error {
	tbl, err := datasets.LoadTable(args[0])
	if err != nil {
		return err
	}

	groups, err := tbl.Strings(zscoreGroup)
	if err != nil {
		return err
	}
	controls := make([]bool, len(groups))
	for i, g := range groups {
		controls[i] = g == zscoreControl
	}

	cols := zscoreColumns
	if len(cols) == 0 {
		cols = dataColumns(tbl.NumericColumns(), append([]string{zscoreGroup}, zscoreExclude...))
	}
	if len(cols) == 0 {
		return fmt.Errorf("%s has no numeric columns to z-score", args[0])
	}

	data := mat.NewDense(tbl.Len(), len(cols), nil)
	for j, name := range cols {
		x, err := tbl.Column(name)
		if err != nil {
			return err
		}
		data.SetCol(j, x)
	}

	z, err := stats.ZScoreMatrix(data, controls)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	w := cmd.OutOrStdout()
	if zscoreOutput != "" {
		f, err := os.Create(zscoreOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := writeZScores(w, tbl, cols, z); err != nil {
		return err
	}
	if zscoreOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d subjects x %d columns to %s\n", tbl.Len(), len(cols), zscoreOutput)
	}
	return nil
}

// dataColumns drops the excluded names (case-insensitively) from numeric.
func dataColumns(numeric, exclude []string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[strings.ToLower(e)] = true
	}
	var out []string
	for _, c := range numeric {
		if !skip[strings.ToLower(c)] {
			out = append(out, c)
		}
	}
	return out
}

// writeZScores writes tbl with the z-scored columns replaced.
func writeZScores(w io.Writer, tbl *datasets.Table, cols []string, z *mat.Dense) error {
	replace := make(map[int]int, len(cols))
	for j, name := range cols {
		for k, h := range tbl.Header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				replace[k] = j
			}
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(tbl.Header); err != nil {
		return err
	}
	for i, row := range tbl.Rows {
		rec := make([]string, len(row))
		for k, cell := range row {
			j, ok := replace[k]
			if !ok {
				rec[k] = cell
				continue
			}
			if v := z.At(i, j); math.IsNaN(v) {
				rec[k] = "NA"
			} else {
				rec[k] = strconv.FormatFloat(v, 'g', 6, 64)
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
