package config

// Presets are keyed by scene kind, then preset name. Each preset is applied
// on top of DefaultConfig.
var Presets = map[string]map[string]func(*Config){
	"fill": {
		"sparse": func(c *Config) { c.Scene.Count = 500 },
		"dense": func(c *Config) {
			c.Scene.Count = 15000
			c.World.Radius = 2
		},
		"zero-g": func(c *Config) {
			c.Scene.Count = 3000
			c.Solver.GravityY = 0
		},
	},
	"boxes": {
		"small": func(c *Config) {
			c.Scene.Kind = "boxes"
			c.Scene.Count = 200
			c.Scene.BoxSize = 10
		},
		"pile": func(c *Config) {
			c.Scene.Kind = "boxes"
			c.Scene.Count = 1000
			c.Scene.BoxSize = 8
			c.World.Radius = 2
		},
	},
	"rope": {
		"short": func(c *Config) {
			c.Scene.Kind = "rope"
			c.Scene.Count = 4
			c.Scene.ChainLength = 20
		},
		"long": func(c *Config) {
			c.Scene.Kind = "rope"
			c.Scene.Count = 10
			c.Scene.ChainLength = 120
			c.Solver.Iterations = 8
		},
		"brittle": func(c *Config) {
			c.Scene.Kind = "rope"
			c.Scene.Count = 6
			c.Scene.ChainLength = 60
			c.Solver.LinkStrength = 0.5
		},
	},
	"rain": {
		"light": func(c *Config) {
			c.Scene.Kind = "rain"
			c.Scene.Count = 5
		},
		"storm": func(c *Config) {
			c.Scene.Kind = "rain"
			c.Scene.Count = 40
			c.World.EvictOldest = true
			c.World.MaxParticles = 8000
		},
	},
}

func GetPreset(scene, preset string) *Config {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	apply, ok := scenePresets[preset]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Scene.Kind = scene
	apply(cfg)
	return cfg
}

func ListPresets(scene string) []string {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenePresets))
	for name := range scenePresets {
		names = append(names, name)
	}
	return names
}

// Scenes lists every scene kind that has presets.
func Scenes() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
