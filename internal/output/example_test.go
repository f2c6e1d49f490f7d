package output_test

import (
	"fmt"
	"math"
	"os"

	"github.com/blackwell-systems/enigma/internal/analyzer"
	"github.com/blackwell-systems/enigma/internal/output"
	"github.com/blackwell-systems/enigma/internal/store"
)

// Example showing how to render ranked epicenters
func ExampleRenderEpicenterTable() {
	rep := &analyzer.Report{
		Run: &store.Run{Kind: store.KindEpicenter},
		Regions: []analyzer.RegionResult{
			{Region: "L_cuneus", R: math.NaN(), P: math.NaN(), Value: math.NaN()},
			{Region: "L_insula", R: -0.2, P: 0.4, Value: 0.25},
			{Region: "R_precuneus", R: 0.8, P: 0.01, Value: 1.5},
		},
	}

	fmt.Print(output.RenderEpicenterTable(rep, 0.05, 0))
	// Output:
	// #    Seed                                    r        p        Map
	// ──────────────────────────────────────────────────────────────────
	// 1    R_precuneus                         0.800    0.010      1.500
	// 2    L_insula                           -0.200    0.400      0.250
	// 3    L_cuneus                                -        -          -
	//
	// 1 of 3 seeds significant at p < 0.05
}

// Example showing how to drive a progress bar from a permutation run
func ExampleProgressBar() {
	progress := output.NewProgress(4, "Generating spins")
	progress.SetWriter(os.Stdout)
	progress.SetWidth(10)

	report := progress.Callback()
	for done := 1; done <= 4; done++ {
		report(done, 4)
	}
	progress.Finish()
	// Output:
	// [=========>] 100% Generating spins
}

// Example showing how to use a spinner
func ExampleSpinner() {
	spinner := output.NewSpinner("Loading connectivity")
	spinner.SetWriter(os.Stdout)
	spinner.Start()

	// Load data...

	spinner.StopWithMessage("Loaded 68 regions")
	// Output:
	// Loading connectivity...
	// Loaded 68 regions
}
