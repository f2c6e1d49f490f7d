package analyzer

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/blackwell-systems/enigma/internal/datasets"
	"github.com/blackwell-systems/enigma/internal/log"
	"github.com/blackwell-systems/enigma/internal/network"
	"github.com/blackwell-systems/enigma/internal/permutation"
	"github.com/blackwell-systems/enigma/internal/stats"
	"github.com/blackwell-systems/enigma/internal/store"
)

func (a *Analyzer) newRun(kind string, conn datasets.Kind, parc, source string) *store.Run {
	return &store.Run{
		Kind:         kind,
		Connectivity: string(conn),
		Parcellation: parc,
		Source:       source,
		Correlation:  string(a.opts.Correlation),
		NRot:         a.opts.NRot,
		Seed:         a.opts.Seed,
		R:            math.NaN(),
		P:            math.NaN(),
		Params:       map[string]string{},
	}
}

func (a *Analyzer) save(rep *Report) error {
	results := make([]store.Result, len(rep.Regions))
	for i, reg := range rep.Regions {
		results[i] = store.Result{
			Index:  i,
			Region: reg.Region,
			Value:  reg.Value,
			R:      reg.R,
			P:      reg.P,
			Hub:    reg.Hub,
		}
	}
	rep.Run.Params["matched"] = strconv.Itoa(rep.Matched)
	if err := a.store.SaveRun(rep.Run, results, rep.Null); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	log.Infof("saved %s run %s", rep.Run.Kind, rep.Run.ID)
	return nil
}

// Hubs runs the hub susceptibility model: degree centrality correlated with
// the disease map, tested with spins (cortex) or shuffles (subcortex).
func (a *Analyzer) Hubs(ctx context.Context, req HubRequest) (*Report, error) {
	if req.Scope == "" {
		req.Scope = Cortex
	}
	conn, err := a.loader.LoadConnectivity(req.Kind, req.Parcellation)
	if err != nil {
		return nil, err
	}

	labels, matrix := conn.CortexLabels, conn.Cortex
	if req.Scope == Subcortex {
		if conn.Subcortex == nil {
			return nil, fmt.Errorf("no subcortical %s connectivity for %s", req.Kind, req.Parcellation)
		}
		labels, matrix = conn.SubcortexLabels, conn.Subcortex
	}

	disease, matched, source, err := a.diseaseMap(req.Map, labels, req.Scope)
	if err != nil {
		return nil, err
	}

	var perms permutation.Permutations
	if req.Scope == Subcortex {
		perms, err = a.shuffles(ctx, req.Parcellation+"_sctx", len(labels))
	} else {
		perms, err = a.spins(ctx, req.Parcellation, len(labels))
	}
	if err != nil {
		return nil, err
	}

	var res *network.HubResult
	if req.Scope == Subcortex {
		res, err = network.SubcorticalHubSusceptibility(ctx, matrix, disease, a.tester(perms), a.opts.HubThreshold)
	} else {
		res, err = network.HubSusceptibility(ctx, matrix, disease, a.tester(perms), a.opts.HubThreshold)
	}
	if err != nil {
		return nil, err
	}

	run := a.newRun(store.KindHubs, req.Kind, req.Parcellation, source)
	run.R, run.P = res.R, res.P
	run.Params["scope"] = string(req.Scope)
	run.Params["hub_threshold"] = strconv.FormatFloat(a.opts.HubThreshold, 'g', -1, 64)

	rep := &Report{Run: run, Null: res.Null, Matched: matched}
	for i, lab := range labels {
		rep.Regions = append(rep.Regions, RegionResult{
			Region: lab,
			Value:  res.Degree[i],
			R:      math.NaN(),
			P:      math.NaN(),
			Hub:    res.Hubs[i],
		})
	}
	if err := a.save(rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// Epicenters maps every seed region's connectivity profile against the
// cortical disease map, tested with spins over cortical regions.
func (a *Analyzer) Epicenters(ctx context.Context, req EpicenterRequest) (*Report, error) {
	if req.Scope == "" {
		req.Scope = Cortex
	}
	conn, err := a.loader.LoadConnectivity(req.Kind, req.Parcellation)
	if err != nil {
		return nil, err
	}
	disease, matched, source, err := a.diseaseMap(req.Map, conn.CortexLabels, Cortex)
	if err != nil {
		return nil, err
	}
	perms, err := a.spins(ctx, req.Parcellation, len(conn.CortexLabels))
	if err != nil {
		return nil, err
	}

	var eps []network.Epicenter
	seeds := conn.CortexLabels
	if req.Scope == Subcortex {
		if conn.Subcortex == nil {
			return nil, fmt.Errorf("no subcortical %s connectivity for %s", req.Kind, req.Parcellation)
		}
		seeds = conn.SubcortexLabels
		eps, err = network.SubcorticalEpicenters(ctx, conn.Subcortex, disease, a.tester(perms))
	} else {
		eps, err = network.Epicenters(ctx, conn.Cortex, disease, a.tester(perms))
	}
	if err != nil {
		return nil, err
	}

	run := a.newRun(store.KindEpicenter, req.Kind, req.Parcellation, source)
	run.Params["scope"] = string(req.Scope)
	run.Params["alpha"] = strconv.FormatFloat(a.opts.Alpha, 'g', -1, 64)

	rep := &Report{Run: run, Matched: matched}
	for _, e := range eps {
		value := math.NaN()
		if req.Scope == Cortex {
			value = disease[e.Index]
		}
		rep.Regions = append(rep.Regions, RegionResult{
			Region: seeds[e.Index],
			Value:  value,
			R:      e.R,
			P:      e.P,
		})
	}
	if sig := network.Significant(eps, a.opts.Alpha); len(sig) > 0 {
		best := network.Ranked(sig)[0]
		log.Infof("%d significant epicenters, strongest %s (r=%.3f)", len(sig), seeds[best.Index], best.R)
	}
	if err := a.save(rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// Spin tests the correlation between two map files with rotate, vertex or
// shuffle permutations.
func (a *Analyzer) Spin(ctx context.Context, req SpinRequest) (*Report, error) {
	x, err := a.loader.LoadVector(req.X)
	if err != nil {
		return nil, err
	}
	y, err := a.loader.LoadVector(req.Y)
	if err != nil {
		return nil, err
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %s has %d values, %s has %d", network.ErrShape, req.X, len(x), req.Y, len(y))
	}

	method := req.Method
	if method == "" {
		method = MethodRotate
	}
	var perms permutation.Permutations
	kind := store.KindSpin
	switch method {
	case MethodRotate:
		if req.Parcellation == "" {
			return nil, fmt.Errorf("rotate method needs a parcellation")
		}
		perms, err = a.spins(ctx, req.Parcellation, len(x))
	case MethodVertex:
		perms, err = a.vertexSpins(ctx)
		if err == nil && perms.Len() != len(x) {
			err = fmt.Errorf("%w: maps have %d values, conte69 has %d vertices", network.ErrShape, len(x), perms.Len())
		}
	case MethodShuffle:
		kind = store.KindShuffle
		perms, err = a.shuffles(ctx, fmt.Sprintf("n%d", len(x)), len(x))
	default:
		return nil, fmt.Errorf("unknown spin method %q (want rotate, vertex or shuffle)", method)
	}
	if err != nil {
		return nil, err
	}

	res, err := a.tester(perms).Test(ctx, x, y)
	if err != nil {
		return nil, err
	}

	run := a.newRun(kind, "", req.Parcellation, req.X+" ~ "+req.Y)
	run.R, run.P = res.R, res.P
	run.Params["method"] = method
	xs, _, _ := stats.Complete(x, y)
	if a.opts.Correlation == stats.Pearson {
		run.Params["p_parametric"] = strconv.FormatFloat(stats.PearsonP(res.R, len(xs)), 'g', 6, 64)
	}
	rep := &Report{Run: run, Null: res.Null, Matched: len(xs)}
	if err := a.save(rep); err != nil {
		return nil, err
	}
	return rep, nil
}
