package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/magsim/internal/dynamo"
)

type Simulator struct {
	sys        dynamo.System
	integrator dynamo.Integrator
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
}

func New(sys dynamo.System, integrator dynamo.Integrator) *Simulator {
	return &Simulator{
		sys:        sys,
		integrator: integrator,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// Run integrates from x0 at t=0 until cfg.Duration. Rewindable systems
// are rewound first, so a Simulator can be run more than once. On
// cancellation or a numerical failure the partial result is returned
// together with the error.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := s.validate(x0, cfg); err != nil {
		return nil, err
	}
	if r, ok := s.sys.(dynamo.Rewindable); ok {
		r.Rewind()
	}

	saveEvery := max(cfg.SaveEvery, 1)
	capacity := int(cfg.Duration/cfg.Dt)/saveEvery + 2
	if cfg.Adaptive || capacity > 1<<16 {
		capacity = 64
	}
	result := &dynamo.Result{
		States:  make([]dynamo.State, 0, capacity),
		Times:   make([]float64, 0, capacity),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0
	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	initialEnergy := s.computeEnergy(x, t)

	var err error
	if cfg.Adaptive {
		x, t, err = s.runAdaptive(ctx, x, cfg, saveEvery, result)
	} else {
		x, t, err = s.runFixed(ctx, x, cfg, saveEvery, result)
	}

	for _, m := range s.metrics {
		m.Observe(x, t)
		result.Metrics[m.Name()] = m.Value()
	}

	if initialEnergy != 0 {
		finalEnergy := s.computeEnergy(x, t)
		result.EnergyChange = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	return result, err
}

// runFixed takes Dt steps and shortens the last one so the run ends
// exactly at Duration.
func (s *Simulator) runFixed(ctx context.Context, x dynamo.State, cfg dynamo.Config, saveEvery int, result *dynamo.Result) (dynamo.State, float64, error) {
	ratio := cfg.Duration / cfg.Dt
	steps := max(int(math.Ceil(ratio-1e-9*ratio)), 1)
	t := 0.0

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return x, t, ctx.Err()
		default:
		}

		s.observe(x, t)

		last := i == steps-1
		h := cfg.Dt
		if last {
			h = cfg.Duration - t
		}

		newX := s.integrator.Step(s.sys, x, t, h)
		if err := s.accept(newX, x, t, i, cfg); err != nil {
			return x, t, err
		}

		x = newX
		if last {
			t = cfg.Duration
		} else {
			t = float64(i+1) * cfg.Dt
		}
		result.StepsTaken++
		s.record(result, x, t, saveEvery, last)
	}

	return x, t, nil
}

func (s *Simulator) runAdaptive(ctx context.Context, x dynamo.State, cfg dynamo.Config, saveEvery int, result *dynamo.Result) (dynamo.State, float64, error) {
	t := 0.0
	dt := cfg.Dt

	for i := 0; t < cfg.Duration; i++ {
		select {
		case <-ctx.Done():
			return x, t, ctx.Err()
		default:
		}

		s.observe(x, t)

		remaining := cfg.Duration - t
		h := math.Min(dt, remaining)

		newX, used, next, rejected, err := s.adaptiveStep(x, t, h, cfg)
		result.StepsRejected += rejected
		if err != nil {
			return x, t, &dynamo.SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: err}
		}
		if err := s.accept(newX, x, t, i, cfg); err != nil {
			return x, t, err
		}

		last := used >= remaining
		x = newX
		if last {
			t = cfg.Duration
		} else {
			t += used
		}
		dt = next
		result.StepsTaken++
		s.record(result, x, t, saveEvery, last)
	}

	return x, t, nil
}

func (s *Simulator) observe(x dynamo.State, t float64) {
	for _, m := range s.metrics {
		m.Observe(x, t)
	}
	for _, obs := range s.observers {
		obs.OnStep(x, t)
	}
}

func (s *Simulator) accept(newX, x dynamo.State, t float64, step int, cfg dynamo.Config) error {
	if cfg.Renormalize {
		dynamo.Normalize(newX, 1)
	}
	if !newX.IsValid() {
		return &dynamo.SimulationError{Step: step, Time: t, State: x.Clone(), Wrapped: dynamo.ErrInvalidState}
	}
	return nil
}

func (s *Simulator) record(result *dynamo.Result, x dynamo.State, t float64, saveEvery int, last bool) {
	if result.StepsTaken%saveEvery == 0 || last {
		result.States = append(result.States, x.Clone())
		result.Times = append(result.Times, t)
	}
}

func (s *Simulator) validate(x0 dynamo.State, cfg dynamo.Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %g", cfg.Duration)
	}
	if cfg.Adaptive && cfg.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive for adaptive stepping")
	}
	if len(x0) != s.sys.StateDim() {
		return fmt.Errorf("%w: state has %d entries, system expects %d", dynamo.ErrDimensionMismatch, len(x0), s.sys.StateDim())
	}
	if !x0.IsValid() {
		return dynamo.ErrInvalidState
	}
	return nil
}

func (s *Simulator) computeEnergy(x dynamo.State, t float64) float64 {
	if h, ok := s.sys.(dynamo.Hamiltonian); ok {
		return h.Energy(x, t)
	}
	return 0
}

// adaptiveStep retries a step until it is accepted. It returns the new
// state, the dt actually used, the proposal for the next dt and the
// number of rejected attempts.
func (s *Simulator) adaptiveStep(x dynamo.State, t, dt float64, cfg dynamo.Config) (dynamo.State, float64, float64, int, error) {
	maxDt := cfg.MaxDt
	if maxDt <= 0 {
		maxDt = math.Inf(1)
	}
	rejected := 0

	if adaptive, ok := s.integrator.(dynamo.AdaptiveIntegrator); ok {
		for {
			newX, next, err := adaptive.StepAdaptive(s.sys, x, t, dt, cfg.Tolerance)
			if errors.Is(err, dynamo.ErrStepRejected) {
				rejected++
				slog.Debug("step rejected", "t", t, "dt", dt, "next", next)
				if next < cfg.MinDt || next <= 0 {
					return nil, 0, 0, rejected, dynamo.ErrStepTooSmall
				}
				dt = next
				continue
			}
			if err != nil {
				return nil, 0, 0, rejected, err
			}
			return newX, dt, math.Min(next, maxDt), rejected, nil
		}
	}

	// step doubling for fixed-order integrators
	for {
		x1 := s.integrator.Step(s.sys, x, t, dt)
		xHalf := s.integrator.Step(s.sys, x, t, dt/2)
		x2 := s.integrator.Step(s.sys, xHalf, t+dt/2, dt/2)

		errNorm := x1.Sub(x2).Norm()
		if errNorm > cfg.Tolerance {
			rejected++
			if dt/2 < cfg.MinDt {
				return nil, 0, 0, rejected, dynamo.ErrStepTooSmall
			}
			slog.Debug("step rejected", "t", t, "dt", dt, "err", errNorm)
			dt /= 2
			continue
		}

		next := dt
		if errNorm < cfg.Tolerance/10 {
			next = math.Min(dt*2, maxDt)
		}
		return x2, dt, next, rejected, nil
	}
}
