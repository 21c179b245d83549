package config

import (
	"fmt"
	"sort"
)

// params maps tunable names to setters. Integer fields are rounded.
var params = map[string]func(*Config, float64){
	"gravity":             func(c *Config, v float64) { c.Solver.GravityY = float32(v) },
	"gravity_x":           func(c *Config, v float64) { c.Solver.GravityX = float32(v) },
	"link_strength":       func(c *Config, v float64) { c.Solver.LinkStrength = float32(v) },
	"anti_pressure_power": func(c *Config, v float64) { c.Solver.AntiPressurePower = float32(v) },
	"edge_margin":         func(c *Config, v float64) { c.Solver.EdgeMargin = float32(v) },
	"cohesion":            func(c *Config, v float64) { c.Solver.Cohesion = float32(v) },
	"damping":             func(c *Config, v float64) { c.Solver.Damping = float32(v) },
	"iterations":          func(c *Config, v float64) { c.Solver.Iterations = roundInt(v) },
	"radius":              func(c *Config, v float64) { c.World.Radius = float32(v) },
	"count":               func(c *Config, v float64) { c.Scene.Count = roundInt(v) },
	"box_size":            func(c *Config, v float64) { c.Scene.BoxSize = float32(v) },
	"chain_length":        func(c *Config, v float64) { c.Scene.ChainLength = roundInt(v) },
}

func roundInt(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}

// SetParam sets the named tunable on c.
func (c *Config) SetParam(name string, value float64) error {
	set, ok := params[name]
	if !ok {
		return fmt.Errorf("unknown parameter %q", name)
	}
	set(c, value)
	return nil
}

// ApplyParams sets every entry of values, stopping at the first unknown name.
func (c *Config) ApplyParams(values map[string]float64) error {
	for name, v := range values {
		if err := c.SetParam(name, v); err != nil {
			return err
		}
	}
	return nil
}

func ParamNames() []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
