package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/partsim/internal/config"
	"github.com/san-kum/partsim/internal/dynamo"
	"github.com/san-kum/partsim/internal/metrics"
	"github.com/san-kum/partsim/internal/particles"
	"github.com/san-kum/partsim/internal/plist"
	"github.com/san-kum/partsim/internal/scene"
	"github.com/san-kum/partsim/internal/sim"
	"github.com/san-kum/partsim/internal/storage"
)

const (
	rainPerStep = 4
	rainSpeed   = 300
)

func runMetrics() []sim.Metric {
	return []sim.Metric{
		metrics.NewKineticEnergy(),
		metrics.NewPeakSpeed(),
		metrics.NewPeakStrain(),
		metrics.NewContainment(),
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
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

	rng := scene.NewRand(cfg.Seed)
	spawned, err := scene.Populate(sys, rng, sim.SceneSpec(cfg))
	if err != nil {
		return fmt.Errorf("seeding %s: %w", cfg.Scene.Kind, err)
	}
	log.Info("scene ready",
		zap.String("scene", cfg.Scene.Kind),
		zap.Int("particles", spawned),
		zap.Int("links", sys.LinkCount()),
		zap.Int64("seed", cfg.Seed),
	)

	runner := sim.New(sys, log)
	for _, m := range runMetrics() {
		runner.AddMetric(m)
	}
	if cfg.Scene.Kind == "rain" {
		runner.SetSpawn(func(sys *particles.System, step int) error {
			_, err := scene.Rain(sys, rng, rainPerStep, rainSpeed)
			if errors.Is(err, plist.ErrCapacityExceeded) {
				return nil
			}
			return err
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	result, err := runner.Run(ctx, sim.Config{
		Dt:          cfg.Run.Dt,
		Steps:       cfg.Run.Steps,
		Seed:        cfg.Seed,
		SampleEvery: sampleEvery,
	})
	elapsed := time.Since(start)
	if err != nil && !errors.Is(err, dynamo.ErrContextCanceled) {
		return err
	}
	if err != nil {
		fmt.Println("interrupted, saving partial run")
	}

	fmt.Printf("scene:        %s\n", cfg.Scene.Kind)
	fmt.Printf("backend:      %s\n", sys.Backend().Name())
	fmt.Printf("steps:        %d (%.2fs simulated)\n", result.StepsTaken, result.Time)
	fmt.Printf("particles:    %d\n", sys.ParticleCount())
	fmt.Printf("links:        %d (%d broken)\n", sys.LinkCount(), result.BrokenLinks)
	if elapsed > 0 {
		fmt.Printf("steps/sec:    %.1f\n", float64(result.StepsTaken)/elapsed.Seconds())
	}
	fmt.Printf("step cost:    %.3f ms\n", result.Timings.Total)
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-14s%.4f\n", name+":", result.Metrics[name])
	}
	if len(result.Errors) > 0 {
		fmt.Printf("spawn errors: %d (first: %v)\n", len(result.Errors), result.Errors[0])
	}

	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	runID, err := store.Save(storage.RunMetadata{
		Scene:       cfg.Scene.Kind,
		Preset:      preset,
		Seed:        cfg.Seed,
		Dt:          cfg.Run.Dt,
		Steps:       result.StepsTaken,
		Backend:     sys.Backend().Name(),
		Particles:   sys.ParticleCount(),
		Links:       sys.LinkCount(),
		BrokenLinks: result.BrokenLinks,
		Metrics:     result.Metrics,
		TimingsMS:   timingsMap(result.Timings),
	}, result.Stats)
	if err != nil {
		return err
	}
	fmt.Printf("run saved: %s\n", runID)
	return nil
}

func timingsMap(t particles.Timings) map[string]float64 {
	return map[string]float64{
		"cull":     t.Cull,
		"grid":     t.Grid,
		"upload":   t.Upload,
		"dispatch": t.Dispatch,
		"download": t.Download,
		"total":    t.Total,
	}
}

// benchScene sweeps particle counts, running an ensemble of identical
// scenes per count.
func benchScene(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	overrideSteps(cmd, cfg, benchSteps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("benchmarking %s: %d steps, %d run(s) per count\n\n", cfg.Scene.Kind, cfg.Run.Steps, benchRuns)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COUNT\tPARTICLES\tSTEPS/SEC\tTOTAL MS\tGRID MS\tDISPATCH MS\tBACKEND")
	fmt.Fprintln(w, "-----\t---------\t---------\t--------\t-------\t-----------\t-------")

	for _, n := range benchCounts {
		runCfg := *cfg
		runCfg.Scene.Count = n
		runCfg.World.MaxParticles = max(cfg.World.MaxParticles, n*4)

		var (
			mu         sync.Mutex
			backend    string
			population int
		)
		factory := func(seed int64) (*particles.System, error) {
			sys, err := sim.BuildSystem(&runCfg, zap.NewNop())
			if err != nil {
				return nil, err
			}
			spawned, err := scene.Populate(sys, scene.NewRand(seed), sim.SceneSpec(&runCfg))
			if err != nil {
				sys.Close()
				return nil, err
			}
			mu.Lock()
			backend, population = sys.Backend().Name(), spawned
			mu.Unlock()
			return sys, nil
		}

		ensemble := sim.NewEnsemble(factory, nil, benchRuns, cfg.Seed)
		start := time.Now()
		results, err := ensemble.Run(ctx, sim.Config{Dt: cfg.Run.Dt, Steps: cfg.Run.Steps})
		elapsed := time.Since(start)
		if err != nil {
			return fmt.Errorf("count %d: %w", n, err)
		}

		var total, grid, dispatch float64
		stepsDone := 0
		for _, r := range results {
			stepsDone += r.StepsTaken
			total += r.Timings.Total
			grid += r.Timings.Grid
			dispatch += r.Timings.Dispatch
		}
		runs := float64(len(results))
		fmt.Fprintf(w, "%d\t%d\t%.1f\t%.3f\t%.3f\t%.3f\t%s\n",
			n, population,
			float64(stepsDone)/elapsed.Seconds(),
			total/runs, grid/runs, dispatch/runs,
			backend)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	scenes := config.Scenes()
	if len(args) > 0 {
		scenes = []string{args[0]}
	}
	for _, s := range scenes {
		names := config.ListPresets(s)
		if len(names) == 0 {
			return fmt.Errorf("no presets for scene %s", s)
		}
		fmt.Printf("%s:\n", s)
		for _, name := range names {
			fmt.Printf("  %s\n", name)
		}
	}
	return nil
}
