package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/partsim/internal/automation"
	"github.com/san-kum/partsim/internal/config"
	"github.com/san-kum/partsim/internal/export"
	"github.com/san-kum/partsim/internal/optim"
	"github.com/san-kum/partsim/internal/particles"
	"github.com/san-kum/partsim/internal/scene"
	"github.com/san-kum/partsim/internal/sim"
	"github.com/san-kum/partsim/internal/storage"
	"github.com/san-kum/partsim/internal/viz"
)

var (
	sweepSteps  int
	sweepParam  string
	sweepMin    float64
	sweepMax    float64
	sweepPoints int

	tuneGrid     []string
	tuneMetric   string
	tuneMaximize bool

	snapSteps  int
	svgOut     string
	svgScale   float64
	svgBraille bool
)

func addAutomationCommands(root *cobra.Command) {
	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted scenario from a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	addWorldFlags(scenarioCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep [scene]",
		Short: "sweep one solver parameter and tabulate the run metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addWorldFlags(sweepCmd)
	sweepCmd.Flags().Float64Var(&dt, "dt", 1.0/60, "timestep")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 300, "steps per point")
	sweepCmd.Flags().StringVar(&sweepParam, "param", "link_strength", "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.25, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 2, "last value")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 8, "number of values")

	tuneCmd := &cobra.Command{
		Use:   "tune [scene]",
		Short: "grid search solver parameters for the best metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	addWorldFlags(tuneCmd)
	tuneCmd.Flags().Float64Var(&dt, "dt", 1.0/60, "timestep")
	tuneCmd.Flags().IntVar(&sweepSteps, "steps", 300, "steps per point")
	tuneCmd.Flags().StringArrayVar(&tuneGrid, "grid", nil, "name=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "peak_strain", "metric to optimize")
	tuneCmd.Flags().BoolVar(&tuneMaximize, "maximize", false, "keep the largest value instead of the smallest")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot [scene]",
		Short: "run a scene and write its final frame as svg",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSnapshot,
	}
	addWorldFlags(snapshotCmd)
	snapshotCmd.Flags().Float64Var(&dt, "dt", 1.0/60, "timestep")
	snapshotCmd.Flags().IntVar(&snapSteps, "steps", 120, "steps before the frame is taken")
	snapshotCmd.Flags().StringVarP(&svgOut, "out", "o", "snapshot.svg", "output file")
	snapshotCmd.Flags().Float64Var(&svgScale, "scale", 1, "svg pixels per world unit (dot size with --braille)")
	snapshotCmd.Flags().BoolVar(&svgBraille, "braille", false, "render through the terminal canvas")

	root.AddCommand(scenarioCmd, sweepCmd, tuneCmd, snapshotCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	base, err := resolveConfig(cmd, nil)
	if err != nil {
		return err
	}
	log, err := newLogger(base)
	if err != nil {
		return err
	}
	defer log.Sync()

	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("scenario %s: %d step(s)\n", sc.Name, len(sc.Steps))
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}
	outs, err := automation.NewRunner(base, store, log).RunScenario(ctx, sc)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\n#\tSCENE\tPRESET\tSTEPS\tPARTICLES\tBROKEN\tCONTAINMENT\tSAVED")
	for i, out := range outs {
		saved := out.RunID
		if saved == "" {
			saved = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%.3f\t%s\n",
			i+1, out.Step.Scene, out.Step.Preset, out.Result.StepsTaken,
			out.Particles, out.Result.BrokenLinks,
			out.Result.Metrics["containment"], saved)
	}
	w.Flush()
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	overrideSteps(cmd, base, sweepSteps)
	if err := base.SetParam(sweepParam, sweepMin); err != nil {
		return fmt.Errorf("%w (known: %s)", err, strings.Join(config.ParamNames(), ", "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := automation.NewRunner(base, nil, nil)
	results, err := r.RunSweep(ctx, &automation.ParameterSweep{
		Scene:     base.Scene.Kind,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepPoints,
		Steps:     base.Run.Steps,
		Dt:        base.Run.Dt,
		Seed:      base.Seed,
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tPARTICLES\tLINKS\tBROKEN\tPEAK STRAIN\tPEAK SPEED\tCONTAINMENT\n", strings.ToUpper(sweepParam))
	for _, res := range results {
		fmt.Fprintf(w, "%.4f\t%d\t%d\t%d\t%.3f\t%.1f\t%.3f\n",
			res.ParamValue, res.Particles, res.Links, res.BrokenLinks,
			res.Metrics["peak_strain"], res.Metrics["peak_speed"], res.Metrics["containment"])
	}
	w.Flush()
	return err
}

// parseGrid turns "name=v1,v2" entries into search axes.
func parseGrid(entries []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(entries))
	ranges := make([][]float64, 0, len(entries))
	for _, e := range entries {
		name, list, ok := strings.Cut(e, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("grid entry %q: want name=v1,v2,...", e)
		}
		var values []float64
		for _, f := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid entry %q: %w", e, err)
			}
			values = append(values, v)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	if len(tuneGrid) == 0 {
		return fmt.Errorf("at least one --grid axis is required")
	}
	names, ranges, err := parseGrid(tuneGrid)
	if err != nil {
		return err
	}
	base, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	overrideSteps(cmd, base, sweepSteps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	search := optim.NewGridSearch(names, ranges)
	if tuneMaximize {
		search.Maximize()
	}
	fmt.Printf("searching %d point(s) for %s\n", search.Points(), tuneMetric)

	r := automation.NewRunner(base, nil, nil)
	best, value, err := search.Search(ctx, func(ctx context.Context, params map[string]float64) (map[string]float64, error) {
		out, err := r.RunStep(ctx, automation.ScenarioStep{Params: params})
		if err != nil {
			return nil, err
		}
		return out.Result.Metrics, nil
	}, tuneMetric)
	if err != nil && best == nil {
		return err
	}

	fmt.Printf("best %s = %.4f\n", tuneMetric, value)
	for _, name := range names {
		fmt.Printf("  %s = %g\n", name, best[name])
	}
	return err
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	overrideSteps(cmd, cfg, snapSteps)
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	sys, err := sim.BuildSystem(cfg, log)
	if err != nil {
		return err
	}
	defer sys.Close()

	if _, err := scene.Populate(sys, scene.NewRand(cfg.Seed), sim.SceneSpec(cfg)); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if _, err := sim.New(sys, log).Run(ctx, sim.Config{Dt: cfg.Run.Dt, Steps: cfg.Run.Steps, Seed: cfg.Seed}); err != nil {
		return err
	}

	var snap particles.Snapshot
	sys.Snapshot(&snap)

	var svg string
	if svgBraille {
		canvas := viz.NewCanvas(cfg.World.Width/8, cfg.World.Height/16)
		viz.DrawSnapshot(canvas, &snap, viz.GetTheme(theme).Link)
		svg = export.CanvasToSVG(canvas, svgScale*4)
	} else {
		svg = export.SnapshotSVG(&snap, export.SVGOptions{Scale: svgScale, LinkStrength: sys.LinkStrength})
	}
	if err := os.WriteFile(svgOut, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("%d particles after %d steps written to %s\n", snap.Particles, snap.Step, svgOut)
	return nil
}
