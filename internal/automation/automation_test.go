package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/partsim/internal/config"
	"github.com/san-kum/partsim/internal/storage"
)

func baseConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.World.MaxParticles = 256
	cfg.Solver.Backend = "cpu"
	cfg.Solver.Workers = 1
	cfg.Solver.GridThreads = 1
	cfg.Scene.Count = 60
	cfg.Run.Steps = 5
	cfg.Seed = 7
	return cfg
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	data := `name: smoke
description: two quick runs
steps:
  - scene: fill
    steps: 10
    params:
      gravity: 0
  - scene: rope
    preset: short
    save_as: rope_short
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sc.Name != "smoke" || len(sc.Steps) != 2 {
		t.Fatalf("got %+v", sc)
	}
	if sc.Steps[0].Params["gravity"] != 0 || sc.Steps[0].Steps != 10 {
		t.Errorf("step 0 = %+v", sc.Steps[0])
	}
	if sc.Steps[1].Preset != "short" || sc.Steps[1].SaveAs != "rope_short" {
		t.Errorf("step 1 = %+v", sc.Steps[1])
	}
}

func TestLoadScenarioEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("name: empty\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScenario(path); err == nil {
		t.Error("expected error for scenario without steps")
	}
}

func TestRunnerConfig(t *testing.T) {
	r := NewRunner(baseConfig(), nil, nil)

	tests := []struct {
		name    string
		step    ScenarioStep
		wantErr bool
		check   func(*config.Config) bool
	}{
		{
			name:  "base",
			step:  ScenarioStep{Scene: "boxes", Steps: 9},
			check: func(c *config.Config) bool { return c.Scene.Kind == "boxes" && c.Run.Steps == 9 && c.Seed == 7 },
		},
		{
			name: "preset keeps backend",
			step: ScenarioStep{Scene: "rope", Preset: "brittle"},
			check: func(c *config.Config) bool {
				return c.Solver.LinkStrength == 0.5 && c.Solver.Backend == "cpu" && c.Scene.Kind == "rope"
			},
		},
		{
			name:  "params",
			step:  ScenarioStep{Params: map[string]float64{"link_strength": 2}},
			check: func(c *config.Config) bool { return c.Solver.LinkStrength == 2 },
		},
		{name: "unknown preset", step: ScenarioStep{Scene: "fill", Preset: "nope"}, wantErr: true},
		{name: "unknown param", step: ScenarioStep{Params: map[string]float64{"warp": 1}}, wantErr: true},
		{name: "invalid result", step: ScenarioStep{Params: map[string]float64{"iterations": 0}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := r.Config(tt.step)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("config: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("unexpected config %+v", cfg)
			}
		})
	}
}

func TestRunnerDoesNotMutateBase(t *testing.T) {
	base := baseConfig()
	r := NewRunner(base, nil, nil)
	if _, err := r.Config(ScenarioStep{Scene: "rain", Params: map[string]float64{"gravity": 1}}); err != nil {
		t.Fatal(err)
	}
	if base.Scene.Kind != "fill" || base.Solver.GravityY != config.DefaultGravityY {
		t.Errorf("base changed: %+v", base)
	}
}

func TestRunScenario(t *testing.T) {
	store := storage.New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	r := NewRunner(baseConfig(), store, nil)

	sc := &Scenario{
		Name: "pair",
		Steps: []ScenarioStep{
			{Scene: "fill", Steps: 4},
			{Scene: "fill", Steps: 6, SampleEvery: 2, SaveAs: "saved"},
		},
	}
	outs, err := r.RunScenario(context.Background(), sc)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(outs) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outs))
	}
	if outs[0].Result.StepsTaken != 4 || outs[1].Result.StepsTaken != 6 {
		t.Errorf("steps = %d, %d", outs[0].Result.StepsTaken, outs[1].Result.StepsTaken)
	}
	if outs[0].Particles != 60 {
		t.Errorf("particles = %d, want 60", outs[0].Particles)
	}
	if outs[0].RunID != "" || outs[1].RunID == "" {
		t.Errorf("run ids = %q, %q", outs[0].RunID, outs[1].RunID)
	}

	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Scene != "saved" {
		t.Fatalf("stored runs = %+v", runs)
	}
	stats, err := store.LoadStats(outs[1].RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 3 {
		t.Errorf("expected 3 stats rows, got %d", len(stats))
	}
}

func TestRunScenarioStopsOnError(t *testing.T) {
	r := NewRunner(baseConfig(), nil, nil)
	sc := &Scenario{Steps: []ScenarioStep{
		{Scene: "fill"},
		{Scene: "fill", Preset: "missing"},
		{Scene: "fill"},
	}}
	outs, err := r.RunScenario(context.Background(), sc)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(outs) != 1 {
		t.Errorf("expected 1 completed step, got %d", len(outs))
	}
}

func TestRunSweep(t *testing.T) {
	r := NewRunner(baseConfig(), nil, nil)
	results, err := r.RunSweep(context.Background(), &ParameterSweep{
		Scene:     "fill",
		ParamName: "link_strength",
		ParamMin:  0.5,
		ParamMax:  1.5,
		NumSteps:  3,
		Steps:     3,
	})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	want := []float64{0.5, 1.0, 1.5}
	if len(results) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(results))
	}
	for i, res := range results {
		if res.ParamValue != want[i] {
			t.Errorf("point %d = %v, want %v", i, res.ParamValue, want[i])
		}
		if _, ok := res.Metrics["containment"]; !ok {
			t.Errorf("point %d missing containment metric", i)
		}
	}

	if _, err := r.RunSweep(context.Background(), &ParameterSweep{Scene: "fill", ParamName: "gravity"}); err == nil {
		t.Error("expected error for empty sweep")
	}
}
