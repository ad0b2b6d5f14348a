package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is a first-order ODE dX/dt = f(X, t).
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Hamiltonian systems expose the energy used for drift tracking.
type Hamiltonian interface {
	Energy(x State, t float64) float64
}

type Integrator interface {
	Step(sys System, x State, t, dt float64) State
}

// AdaptiveIntegrator advances one step and proposes the next timestep.
// A step whose local error exceeds tol is reported with ErrStepRejected
// and must be retried with the returned dt.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, x State, t, dt, tol float64) (State, float64, error)
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, t float64)
}

// Rewindable systems carry time-dependent internal state that must be
// returned to t=0 before a run restarts.
type Rewindable interface {
	Rewind()
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type Config struct {
	Dt          float64
	Duration    float64
	Seed        int64
	Tolerance   float64
	MaxDt       float64
	MinDt       float64
	Adaptive    bool
	SaveEvery   int
	Renormalize bool
}

func DefaultConfig() Config {
	return Config{
		Dt:        1e-13,
		Duration:  1e-9,
		Tolerance: 1e-6,
		MaxDt:     1e-11,
		MinDt:     1e-18,
		Adaptive:  false,
		SaveEvery: 1,
	}
}

type Result struct {
	States        []State
	Times         []float64
	Metrics       map[string]float64
	EnergyChange  float64
	StepsTaken    int
	StepsRejected int
}

// Final returns the last recorded state, or nil for an empty result.
func (r *Result) Final() State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}
