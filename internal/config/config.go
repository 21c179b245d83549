package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultWidth        = 800
	DefaultHeight       = 600
	DefaultRadius       = 3.0
	DefaultMaxParticles = 20000
	DefaultDt           = 1.0 / 60
	DefaultSteps        = 600
	DefaultIterations   = 5
	DefaultGravityY     = 400.0
	DefaultTargetFPS    = 60
	DefaultCount        = 2000
)

type Config struct {
	Seed    int64         `yaml:"seed"`
	World   WorldConfig   `yaml:"world"`
	Solver  SolverConfig  `yaml:"solver"`
	Run     RunConfig     `yaml:"run"`
	Scene   SceneConfig   `yaml:"scene"`
	Logging LoggingConfig `yaml:"logging"`
}

type WorldConfig struct {
	Width               int     `yaml:"width"`
	Height              int     `yaml:"height"`
	Radius              float32 `yaml:"radius"`
	MaxParticles        int     `yaml:"max_particles"`
	MaxLinks            int     `yaml:"max_links"`
	MaxLinksPerParticle int     `yaml:"max_links_per_particle"`
	EvictOldest         bool    `yaml:"evict_oldest"`
}

type SolverConfig struct {
	Backend           string  `yaml:"backend"`
	Workers           int     `yaml:"workers"`
	GridThreads       int     `yaml:"grid_threads"`
	Iterations        int     `yaml:"iterations"`
	GravityX          float32 `yaml:"gravity_x"`
	GravityY          float32 `yaml:"gravity_y"`
	AntiPressurePower float32 `yaml:"anti_pressure_power"`
	LinkStrength      float32 `yaml:"link_strength"`
	EdgeMargin        float32 `yaml:"edge_margin"`
	Cohesion          float32 `yaml:"cohesion"`
	Damping           float32 `yaml:"damping"`
}

type RunConfig struct {
	Dt        float64 `yaml:"dt"`
	Steps     int     `yaml:"steps"`
	TargetFPS int     `yaml:"target_fps"`
	Record    bool    `yaml:"record"`
}

// SceneConfig picks the spawner that seeds a run.
type SceneConfig struct {
	Kind        string  `yaml:"kind"`
	Count       int     `yaml:"count"`
	BoxSize     float32 `yaml:"box_size"`
	ChainLength int     `yaml:"chain_length"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		World: WorldConfig{
			Width:               DefaultWidth,
			Height:              DefaultHeight,
			Radius:              DefaultRadius,
			MaxParticles:        DefaultMaxParticles,
			MaxLinksPerParticle: 6,
		},
		Solver: SolverConfig{
			Backend:           "auto",
			Iterations:        DefaultIterations,
			GravityY:          DefaultGravityY,
			AntiPressurePower: 0.25,
			LinkStrength:      1,
			EdgeMargin:        2.1,
			Cohesion:          0.05,
			Damping:           0.98,
		},
		Run: RunConfig{
			Dt:        DefaultDt,
			Steps:     DefaultSteps,
			TargetFPS: DefaultTargetFPS,
		},
		Scene: SceneConfig{
			Kind:        "fill",
			Count:       DefaultCount,
			BoxSize:     12,
			ChainLength: 40,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("world size must be positive, got %dx%d", c.World.Width, c.World.Height)
	}
	if c.World.Radius <= 0 {
		return fmt.Errorf("radius must be positive, got %f", c.World.Radius)
	}
	if c.World.MaxParticles <= 0 {
		return fmt.Errorf("max_particles must be positive, got %d", c.World.MaxParticles)
	}
	if c.Run.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", c.Run.Dt)
	}
	if c.Solver.Iterations < 1 {
		return fmt.Errorf("iterations must be at least 1, got %d", c.Solver.Iterations)
	}
	return nil
}
