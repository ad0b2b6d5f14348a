package config

import "slices"

// Presets maps scenario name to preset name to a partial configuration.
// Fields left zero keep their DefaultConfig value.
var Presets = map[string]map[string]*Config{
	"macrospin": {
		"relax": {
			Integrator: "rk45", Duration: 2e-9,
			Material: MaterialConfig{Alpha: 1.0},
			Init:     InitConfig{M: [3]float64{1, 0, 0}},
			Zeeman:   ZeemanConfig{H: [3]float64{0, 0, 1e5}},
		},
		"precession": {
			Integrator: "rk4", Dt: 1e-13, Duration: 1e-9, Adaptive: false,
			Material: MaterialConfig{Alpha: 0.01},
			Init:     InitConfig{M: [3]float64{1, 0, 0.1}},
			Zeeman:   ZeemanConfig{H: [3]float64{0, 0, 8e4}},
		},
		"switching": {
			Integrator: "rk45", Duration: 3e-9,
			Material:   MaterialConfig{Alpha: 0.1},
			Init:       InitConfig{M: [3]float64{0.01, 0, 1}},
			Zeeman:     ZeemanConfig{H: [3]float64{0, 0, -2e5}},
			Anisotropy: AnisotropyConfig{K1: 5e4, Axis: [3]float64{0, 0, 1}},
		},
		"pulse": {
			Integrator: "rk45", Duration: 2e-9,
			Material: MaterialConfig{Alpha: 0.05},
			Init:     InitConfig{M: [3]float64{0, 0, 1}},
			Zeeman:   ZeemanConfig{H: [3]float64{1e5, 0, 0}, TOff: 2e-10},
		},
		"resonance": {
			Integrator: "rk45", Duration: 2e-9,
			Material: MaterialConfig{Alpha: 0.02},
			Init:     InitConfig{M: [3]float64{0, 0, 1}},
			Zeeman:   ZeemanConfig{H: [3]float64{0, 0, 1e5}, H1: [3]float64{2e3, 0, 0}, Frequency: 3.5e9},
		},
	},
	"film": {
		"anisotropy": {
			Integrator: "rk45", Duration: 1e-9, Points: 1024,
			Material:   MaterialConfig{Alpha: 0.3},
			Init:       InitConfig{M: [3]float64{1, 0, 1}, Perturb: 0.3},
			Zeeman:     ZeemanConfig{H: [3]float64{}},
			Anisotropy: AnisotropyConfig{K1: 5e5, Axis: [3]float64{0, 0, 1}},
		},
	},
}

// GetPreset returns DefaultConfig overlaid with the named preset, or nil.
func GetPreset(scenario, name string) *Config {
	presets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	p, ok := presets[name]
	if !ok {
		return nil
	}

	cfg := DefaultConfig()
	cfg.Name = scenario + "/" + name
	cfg.Integrator = p.Integrator
	cfg.Adaptive = p.Integrator == "rk45"
	if p.Dt > 0 {
		cfg.Dt = p.Dt
	}
	cfg.Duration = p.Duration
	if p.Points > 0 {
		cfg.Points = p.Points
	}
	cfg.Material.Alpha = p.Material.Alpha
	cfg.Init = p.Init
	cfg.Zeeman = p.Zeeman
	if p.Anisotropy.K1 > 0 {
		cfg.Anisotropy = p.Anisotropy
	}
	return cfg
}

func ListPresets(scenario string) []string {
	presets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func ListScenarios() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
