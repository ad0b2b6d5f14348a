package config

import (
	"fmt"
	"slices"
)

// setters maps the scalar keys accepted by Set to the field they write.
var setters = map[string]func(*Config, float64){
	"dt":        func(c *Config, v float64) { c.Dt = v },
	"duration":  func(c *Config, v float64) { c.Duration = v },
	"tolerance": func(c *Config, v float64) { c.Tolerance = v },
	"alpha":     func(c *Config, v float64) { c.Material.Alpha = v },
	"gamma":     func(c *Config, v float64) { c.Material.Gamma = v },
	"ms":        func(c *Config, v float64) { c.Material.Ms = v },
	"c":         func(c *Config, v float64) { c.Material.C = v },
	"hx":        func(c *Config, v float64) { c.Zeeman.H[0] = v },
	"hy":        func(c *Config, v float64) { c.Zeeman.H[1] = v },
	"hz":        func(c *Config, v float64) { c.Zeeman.H[2] = v },
	"frequency": func(c *Config, v float64) { c.Zeeman.Frequency = v },
	"t_off":     func(c *Config, v float64) { c.Zeeman.TOff = v },
	"k1":        func(c *Config, v float64) { c.Anisotropy.K1 = v },
	"perturb":   func(c *Config, v float64) { c.Init.Perturb = v },
}

// Set assigns a scalar parameter by key, e.g. "alpha" or "hz".
func (c *Config) Set(key string, v float64) error {
	fn, ok := setters[key]
	if !ok {
		return fmt.Errorf("%w: unknown parameter %q (available: %v)", ErrInvalidConfig, key, ParamKeys())
	}
	fn(c, v)
	return nil
}

func ParamKeys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
