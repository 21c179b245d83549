package sim

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/partsim/internal/compute"
	"github.com/san-kum/partsim/internal/config"
	"github.com/san-kum/partsim/internal/geom"
	"github.com/san-kum/partsim/internal/particles"
	"github.com/san-kum/partsim/internal/scene"
)

// BuildSystem allocates a system for cfg on the configured backend and
// copies the solver tunables onto it as given. The caller owns the
// result and must Close it.
func BuildSystem(cfg *config.Config, log *zap.Logger) (*particles.System, error) {
	if log == nil {
		log = zap.NewNop()
	}
	backend, err := compute.NewBackend(cfg.Solver.Backend, cfg.Solver.Workers)
	if err != nil {
		return nil, fmt.Errorf("backend %q: %w", cfg.Solver.Backend, err)
	}

	sys, err := particles.New(particles.Config{
		MaxParticles:        cfg.World.MaxParticles,
		MaxLinks:            cfg.World.MaxLinks,
		MaxLinksPerParticle: cfg.World.MaxLinksPerParticle,
		Width:               cfg.World.Width,
		Height:              cfg.World.Height,
		Radius:              cfg.World.Radius,
		EvictOldest:         cfg.World.EvictOldest,
		Threads:             cfg.Solver.GridThreads,
	}, particles.WithBackend(backend), particles.WithLogger(log))
	if err != nil {
		backend.Cleanup()
		return nil, err
	}

	s := cfg.Solver
	sys.Gravity = geom.V(s.GravityX, s.GravityY)
	sys.Iterations = max(s.Iterations, 1)
	sys.AntiPressurePower = s.AntiPressurePower
	sys.LinkStrength = s.LinkStrength
	sys.EdgeMargin = s.EdgeMargin
	sys.Cohesion = s.Cohesion
	sys.Damping = s.Damping
	return sys, nil
}

func SceneSpec(cfg *config.Config) scene.Spec {
	return scene.Spec{
		Kind:        cfg.Scene.Kind,
		Count:       cfg.Scene.Count,
		BoxSize:     cfg.Scene.BoxSize,
		ChainLength: cfg.Scene.ChainLength,
	}
}
