package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	logFormat  string

	// World and solver overrides
	seed         int64
	count        int
	width        int
	height       int
	radius       float32
	maxParticles int
	evictOldest  bool
	backendName  string
	workers      int
	iterations   int
	gravityY     float32
	linkStrength float32

	// Run control
	dt          float64
	steps       int
	sampleEvery int
	frameRate   int
	record      bool

	// bench
	benchSteps  int
	benchRuns   int
	benchCounts []int

	// plot / export
	plotField    string
	plotSVG      string
	exportFormat string

	theme string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "partsim",
		Short: "2d verlet particle simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPicker(cmd, args)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".partsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "run a headless simulation and save its stats",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addWorldFlags(runCmd)
	runCmd.Flags().Float64Var(&dt, "dt", 1.0/60, "timestep")
	runCmd.Flags().IntVar(&steps, "steps", 600, "number of steps")
	runCmd.Flags().IntVar(&sampleEvery, "sample-every", 10, "record a stats row every n steps")

	benchCmd := &cobra.Command{
		Use:   "bench [scene]",
		Short: "measure step throughput across particle counts",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScene,
	}
	addWorldFlags(benchCmd)
	benchCmd.Flags().Float64Var(&dt, "dt", 1.0/60, "timestep")
	benchCmd.Flags().IntVar(&benchSteps, "steps", 200, "steps per run")
	benchCmd.Flags().IntVar(&benchRuns, "runs", 1, "concurrent runs per particle count")
	benchCmd.Flags().IntSliceVar(&benchCounts, "counts", []int{500, 1000, 2000, 5000}, "particle counts to sweep")

	liveCmd := &cobra.Command{
		Use:   "live [scene]",
		Short: "run a simulation in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addWorldFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 60, "physics steps per second")
	liveCmd.Flags().StringVar(&theme, "theme", "neon", "color theme")
	liveCmd.Flags().BoolVar(&record, "record", false, "write live stats to the data directory")

	guiCmd := &cobra.Command{
		Use:   "gui [scene]",
		Short: "open the desktop viewer",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGUI,
	}
	addWorldFlags(guiCmd)
	guiCmd.Flags().IntVar(&frameRate, "fps", 60, "physics steps per second")

	presetsCmd := &cobra.Command{
		Use:   "presets [scene]",
		Short: "list scenes and their presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stats column of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotField, "field", "kinetic", "column: kinetic, speed, max-speed, strain, particles, links, escaped")
	plotCmd.Flags().StringVar(&plotSVG, "svg", "", "also write the plot to an svg file")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and stats",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format (json, csv)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run stats as csv",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exportFormat = "csv"
			return exportRun(cmd, args)
		},
	}

	rootCmd.AddCommand(runCmd, benchCmd, liveCmd, guiCmd, presetsCmd, listCmd, plotCmd, exportCmd, exportCSVCmd)
	addAutomationCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// addWorldFlags registers the overrides shared by every command that builds
// a system. Only flags the user sets replace preset or config file values.
func addWorldFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Int64Var(&seed, "seed", 0, "random seed")
	f.IntVar(&count, "count", 0, "spawner count (particles, boxes or ropes)")
	f.IntVar(&width, "width", 800, "world width")
	f.IntVar(&height, "height", 600, "world height")
	f.Float32Var(&radius, "radius", 3, "particle radius")
	f.IntVar(&maxParticles, "max-particles", 20000, "particle capacity")
	f.BoolVar(&evictOldest, "evict-oldest", false, "recycle the oldest particle when full")
	f.StringVar(&backendName, "backend", "auto", "compute backend (auto, cpu, opengl)")
	f.IntVar(&workers, "workers", 0, "cpu backend workers (0 = all cpus)")
	f.IntVar(&iterations, "iterations", 5, "solver iterations per step")
	f.Float32Var(&gravityY, "gravity", 400, "downward gravity")
	f.Float32Var(&linkStrength, "link-strength", 1, "strain at which links break")
}
