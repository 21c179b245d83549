package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/partsim/internal/config"
)

// resolveConfig layers defaults, the preset, the config file and finally the
// flags the user set explicitly.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	kind := "fill"
	if len(args) > 0 {
		kind = args[0]
	}

	cfg := config.DefaultConfig()
	cfg.Scene.Kind = kind
	if preset != "" {
		p := config.GetPreset(kind, preset)
		if p == nil {
			return nil, fmt.Errorf("preset %s/%s not found", kind, preset)
		}
		cfg = p
		fmt.Printf("using preset: %s/%s\n", kind, preset)
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		if len(args) > 0 {
			cfg.Scene.Kind = kind
		}
	}

	applyFlags(cmd, cfg)
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("seed") {
		cfg.Seed = seed
	}
	if changed("count") {
		cfg.Scene.Count = count
	}
	if changed("width") {
		cfg.World.Width = width
	}
	if changed("height") {
		cfg.World.Height = height
	}
	if changed("radius") {
		cfg.World.Radius = radius
	}
	if changed("max-particles") {
		cfg.World.MaxParticles = maxParticles
	}
	if changed("evict-oldest") {
		cfg.World.EvictOldest = evictOldest
	}
	if changed("backend") {
		cfg.Solver.Backend = backendName
	}
	if changed("workers") {
		cfg.Solver.Workers = workers
	}
	if changed("iterations") {
		cfg.Solver.Iterations = iterations
	}
	if changed("gravity") {
		cfg.Solver.GravityY = gravityY
	}
	if changed("link-strength") {
		cfg.Solver.LinkStrength = linkStrength
	}
	if changed("dt") {
		cfg.Run.Dt = dt
	}
	if changed("steps") && cmd.Name() == "run" {
		cfg.Run.Steps = steps
	}
	if changed("fps") {
		cfg.Run.TargetFPS = frameRate
	}
	if changed("record") {
		cfg.Run.Record = record
	}
	if changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if changed("log-format") {
		cfg.Logging.Format = logFormat
	}
}

// overrideSteps applies a command's own --steps default unless a config
// file supplied the step count.
func overrideSteps(cmd *cobra.Command, cfg *config.Config, v int) {
	if configFile == "" || cmd.Flags().Changed("steps") {
		cfg.Run.Steps = v
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return config.NewLogger(cfg.Logging)
}
