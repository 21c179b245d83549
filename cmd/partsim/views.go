package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/partsim/internal/config"
	"github.com/san-kum/partsim/internal/gui"
	"github.com/san-kum/partsim/internal/sim"
	"github.com/san-kum/partsim/internal/storage"
	"github.com/san-kum/partsim/internal/viz"
)

// runPicker opens the preset menu, or the live view directly when a config
// file is given.
func runPicker(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		return runLive(cmd, args)
	}
	return viz.RunInteractive(func(cfg *config.Config, preset string) (viz.Model, error) {
		sys, err := sim.BuildSystem(cfg, zap.NewNop())
		if err != nil {
			return viz.Model{}, err
		}
		return viz.NewModel(sys, viz.Options{
			Title: preset,
			Scene: sim.SceneSpec(cfg),
			Seed:  time.Now().UnixNano(),
			FPS:   cfg.Run.TargetFPS,
		})
	})
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	// The terminal is owned by the UI; only errors reach stderr.
	if !cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = "error"
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

	opts := viz.Options{
		Title: preset,
		Scene: sim.SceneSpec(cfg),
		Seed:  cfg.Seed,
		Theme: theme,
		FPS:   cfg.Run.TargetFPS,
		Log:   log,
	}
	if cfg.Run.Record {
		store := storage.New(dataDir)
		if err := store.Init(); err != nil {
			return err
		}
		path := filepath.Join(dataDir, fmt.Sprintf("live_%s_%d.csv", cfg.Scene.Kind, time.Now().Unix()))
		rec, err := storage.NewStatsWriter(path)
		if err != nil {
			return err
		}
		opts.Recorder = rec
		defer fmt.Printf("stats written to %s\n", path)
	}
	return viz.Run(sys, opts)
}

func runGUI(cmd *cobra.Command, args []string) error {
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

	return gui.Run(sys, gui.Options{
		Scene: sim.SceneSpec(cfg),
		Seed:  cfg.Seed,
		FPS:   cfg.Run.TargetFPS,
		Log:   log,
	})
}
