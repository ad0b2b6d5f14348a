package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/san-kum/magsim/internal/config"
	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/field"
	"github.com/san-kum/magsim/internal/llg"
	"github.com/san-kum/magsim/internal/sim"
	"github.com/san-kum/magsim/internal/storage"
)

// Experiment is a fully assembled run: equation, integrator, metrics and
// initial magnetization built from one config.
type Experiment struct {
	cfg       *config.Config
	eq        *llg.Equation
	simulator *sim.Simulator
	x0        dynamo.State
}

// Build validates cfg and assembles an experiment seeded with cfg.Seed.
func Build(cfg *config.Config, reg *Registry) (*Experiment, error) {
	return build(cfg, reg, cfg.Seed)
}

func build(cfg *config.Config, reg *Registry, seed int64) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	eq, err := NewEquation(cfg)
	if err != nil {
		return nil, err
	}

	integrator, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	s := sim.New(eq, integrator)
	for _, m := range reg.DefaultMetrics(eq) {
		s.AddMetric(m)
	}

	slog.Debug("experiment built", "name", cfg.Name, "integrator", cfg.Integrator,
		"points", cfg.Points, "interactions", eq.Field.Names(), "seed", seed)

	return &Experiment{
		cfg:       cfg,
		eq:        eq,
		simulator: s,
		x0:        InitialState(cfg, seed),
	}, nil
}

// NewField assembles the effective field described by cfg.
func NewField(cfg *config.Config) (*field.EffectiveField, error) {
	ef := field.NewEffectiveField(cfg.Points)
	ms, vol := cfg.Material.Ms, cfg.Material.CellVolume
	z := cfg.Zeeman

	var zeeman field.Interaction
	switch {
	case z.DtUpdate > 0:
		tz, err := field.NewDiscreteTimeZeeman(z.H, z.H1, z.Frequency, z.DtUpdate, z.TOff, ms, vol)
		if err != nil {
			return nil, err
		}
		zeeman = tz
	case z.TimeDependent():
		zeeman = field.NewTimeZeeman(z.H, z.H1, z.Frequency, z.TOff, ms, vol)
	default:
		zeeman = field.NewZeeman(z.H, ms, vol)
	}
	if err := ef.Add(zeeman); err != nil {
		return nil, err
	}

	if cfg.Anisotropy.K1 > 0 {
		anis, err := field.NewUniaxialAnisotropy(cfg.Anisotropy.K1, cfg.Anisotropy.Axis, ms, vol)
		if err != nil {
			return nil, err
		}
		if err := ef.Add(anis); err != nil {
			return nil, err
		}
	}
	return ef, nil
}

// NewEquation builds the LLG equation with the material parameters of cfg.
func NewEquation(cfg *config.Config) (*llg.Equation, error) {
	ef, err := NewField(cfg)
	if err != nil {
		return nil, err
	}

	eq := llg.New(ef)
	eq.Alpha = cfg.Material.Alpha
	eq.Gamma = cfg.Material.Gamma
	eq.C = cfg.Material.C
	eq.Precession = cfg.Material.Precession
	if err := eq.Validate(); err != nil {
		return nil, err
	}
	return eq, nil
}

// InitialState returns cfg.Points unit vectors along cfg.Init.M, perturbed
// by cfg.Init.Perturb using a generator seeded with seed.
func InitialState(cfg *config.Config, seed int64) dynamo.State {
	rng := rand.New(rand.NewSource(seed))
	return dynamo.PerturbedVectors(cfg.Points, cfg.Init.M, cfg.Init.Perturb, rng)
}

// SimConfig converts cfg to the simulator's run parameters.
func SimConfig(cfg *config.Config) dynamo.Config {
	return dynamo.Config{
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		Seed:        cfg.Seed,
		Tolerance:   cfg.Tolerance,
		MaxDt:       cfg.MaxDt,
		MinDt:       cfg.MinDt,
		Adaptive:    cfg.Adaptive,
		SaveEvery:   cfg.SaveEvery,
		Renormalize: cfg.Renormalize,
	}
}

// RunInfo is the stored description of a run built from cfg.
func RunInfo(cfg *config.Config) storage.RunInfo {
	return storage.RunInfo{
		Name:       cfg.Name,
		Integrator: cfg.Integrator,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Seed:       cfg.Seed,
		Points:     cfg.Points,
		Adaptive:   cfg.Adaptive,
		Alpha:      cfg.Material.Alpha,
		Gamma:      cfg.Material.Gamma,
		Field:      cfg.Zeeman.H,
	}
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not built")
	}
	return e.simulator.Run(ctx, e.x0, SimConfig(e.cfg))
}

func (e *Experiment) Config() *config.Config { return e.cfg }

func (e *Experiment) Equation() *llg.Equation { return e.eq }

func (e *Experiment) InitialState() dynamo.State { return e.x0.Clone() }

// Simulator returns the underlying simulator for adding observers.
func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }

// RunEnsemble runs n independent copies of cfg seeded cfg.Seed, cfg.Seed+1, ...
func RunEnsemble(ctx context.Context, cfg *config.Config, reg *Registry, n int) ([]*dynamo.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	factory := func(seed int64) (*sim.Simulator, dynamo.State, error) {
		e, err := build(cfg, reg, seed)
		if err != nil {
			return nil, nil, err
		}
		return e.simulator, e.x0, nil
	}
	return sim.NewEnsemble(factory, n, cfg.Seed).Run(ctx, SimConfig(cfg))
}
