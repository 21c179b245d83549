package automation

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/partsim/internal/config"
	"github.com/san-kum/partsim/internal/metrics"
	"github.com/san-kum/partsim/internal/scene"
	"github.com/san-kum/partsim/internal/sim"
	"github.com/san-kum/partsim/internal/storage"
)

// Scenario defines a scripted sequence of headless runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single run in a scenario. Params are applied through
// config.SetParam after the preset.
type ScenarioStep struct {
	Scene       string             `yaml:"scene"`
	Preset      string             `yaml:"preset"`
	Steps       int                `yaml:"steps"`
	Dt          float64            `yaml:"dt"`
	Seed        int64              `yaml:"seed"`
	SampleEvery int                `yaml:"sample_every"`
	Params      map[string]float64 `yaml:"params"`
	SaveAs      string             `yaml:"save_as"`
}

// Outcome is what one step produced.
type Outcome struct {
	Step      ScenarioStep
	Backend   string
	Particles int
	Links     int
	Result    *sim.Result
	RunID     string
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%s: scenario has no steps", path)
	}

	return &scenario, nil
}

// Runner executes scenario steps on top of a base configuration.
type Runner struct {
	base  *config.Config
	store *storage.Store
	log   *zap.Logger
}

// NewRunner returns a runner. store may be nil, in which case SaveAs is
// ignored.
func NewRunner(base *config.Config, store *storage.Store, log *zap.Logger) *Runner {
	if base == nil {
		base = config.DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{base: base, store: store, log: log}
}

// Config resolves the configuration step runs with.
func (r *Runner) Config(step ScenarioStep) (*config.Config, error) {
	var cfg *config.Config
	if step.Preset != "" {
		cfg = config.GetPreset(step.Scene, step.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("preset %s/%s not found", step.Scene, step.Preset)
		}
		cfg.Logging = r.base.Logging
		cfg.Solver.Backend, cfg.Solver.Workers = r.base.Solver.Backend, r.base.Solver.Workers
	} else {
		c := *r.base
		cfg = &c
		if step.Scene != "" {
			cfg.Scene.Kind = step.Scene
		}
	}

	if step.Steps > 0 {
		cfg.Run.Steps = step.Steps
	}
	if step.Dt > 0 {
		cfg.Run.Dt = step.Dt
	}
	if step.Seed != 0 {
		cfg.Seed = step.Seed
	}
	if err := cfg.ApplyParams(step.Params); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunStep builds, seeds and runs one step, then saves it when SaveAs is set.
func (r *Runner) RunStep(ctx context.Context, step ScenarioStep) (*Outcome, error) {
	cfg, err := r.Config(step)
	if err != nil {
		return nil, err
	}

	sys, err := sim.BuildSystem(cfg, r.log)
	if err != nil {
		return nil, err
	}
	defer sys.Close()

	if _, err := scene.Populate(sys, scene.NewRand(cfg.Seed), sim.SceneSpec(cfg)); err != nil {
		return nil, fmt.Errorf("seeding %s: %w", cfg.Scene.Kind, err)
	}

	runner := sim.New(sys, r.log)
	runner.AddMetric(metrics.NewKineticEnergy())
	runner.AddMetric(metrics.NewPeakSpeed())
	runner.AddMetric(metrics.NewPeakStrain())
	runner.AddMetric(metrics.NewContainment())

	result, err := runner.Run(ctx, sim.Config{
		Dt:          cfg.Run.Dt,
		Steps:       cfg.Run.Steps,
		Seed:        cfg.Seed,
		SampleEvery: step.SampleEvery,
	})
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Step:      step,
		Backend:   sys.Backend().Name(),
		Particles: sys.ParticleCount(),
		Links:     sys.LinkCount(),
		Result:    result,
	}
	if step.SaveAs != "" && r.store != nil {
		out.RunID, err = r.store.Save(storage.RunMetadata{
			Scene:       step.SaveAs,
			Preset:      step.Preset,
			Seed:        cfg.Seed,
			Dt:          cfg.Run.Dt,
			Steps:       result.StepsTaken,
			Backend:     out.Backend,
			Particles:   out.Particles,
			Links:       out.Links,
			BrokenLinks: result.BrokenLinks,
			Metrics:     result.Metrics,
		}, result.Stats)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// RunScenario executes all steps in order and stops at the first failure.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) ([]Outcome, error) {
	results := make([]Outcome, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		r.log.Info("scenario step",
			zap.String("scenario", scenario.Name),
			zap.Int("step", i+1),
			zap.Int("of", len(scenario.Steps)),
			zap.String("scene", step.Scene),
		)

		out, err := r.RunStep(ctx, step)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		results = append(results, *out)
	}

	return results, nil
}

// ParameterSweep runs one scene across evenly spaced values of a parameter
type ParameterSweep struct {
	Scene     string
	Preset    string
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
	Steps     int
	Dt        float64
	Seed      int64
}

// SweepResult holds results from one sweep point
type SweepResult struct {
	ParamValue  float64
	Metrics     map[string]float64
	BrokenLinks int
	Particles   int
	Links       int
}

// RunSweep executes a parameter sweep. Every point uses the same seed.
func (r *Runner) RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one point, got %d", sweep.NumSteps)
	}
	results := make([]SweepResult, 0, sweep.NumSteps)

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		out, err := r.RunStep(ctx, ScenarioStep{
			Scene:  sweep.Scene,
			Preset: sweep.Preset,
			Steps:  sweep.Steps,
			Dt:     sweep.Dt,
			Seed:   sweep.Seed,
			Params: map[string]float64{sweep.ParamName: paramVal},
		})
		if err != nil {
			return results, fmt.Errorf("%s=%.4f: %w", sweep.ParamName, paramVal, err)
		}

		results = append(results, SweepResult{
			ParamValue:  paramVal,
			Metrics:     out.Result.Metrics,
			BrokenLinks: out.Result.BrokenLinks,
			Particles:   out.Particles,
			Links:       out.Links,
		})

		r.log.Debug("sweep point",
			zap.Int("point", i+1),
			zap.String("param", sweep.ParamName),
			zap.Float64("value", paramVal),
		)
	}

	return results, nil
}
