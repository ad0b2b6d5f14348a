package llg

import (
	"fmt"

	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/field"
)

const (
	// GammaLL is the gyromagnetic ratio μ0·|γe| in m/(A·s).
	GammaLL = 2.210173e5

	// DefaultC is the default strength of the normalization relaxation term.
	DefaultC = 1e11

	// parallelChunk is the smallest number of points handed to one worker.
	parallelChunk = 4096
)

// Equation is the LLG right-hand side over every point of a vector field.
type Equation struct {
	Alpha      float64
	Gamma      float64
	C          float64
	Precession bool
	Field      *field.EffectiveField

	points int
	hPool  *dynamo.StatePool
}

func New(ef *field.EffectiveField) *Equation {
	n := ef.Points()
	return &Equation{
		Alpha:      0.5,
		Gamma:      GammaLL,
		C:          DefaultC,
		Precession: true,
		Field:      ef,
		points:     n,
		hPool:      dynamo.NewStatePool(3 * n),
	}
}

func (e *Equation) StateDim() int { return 3 * e.points }

func (e *Equation) Rewind() { e.Field.Rewind() }

func (e *Equation) Validate() error {
	if e.Alpha < 0 {
		return fmt.Errorf("%w: alpha must be non-negative, got %g", dynamo.ErrParameterBounds, e.Alpha)
	}
	if e.Gamma <= 0 {
		return fmt.Errorf("%w: gamma must be positive, got %g", dynamo.ErrParameterBounds, e.Gamma)
	}
	if e.Field == nil {
		return fmt.Errorf("%w: no effective field", dynamo.ErrParameterBounds)
	}
	return nil
}

// Derive returns dm/dt at time t.
func (e *Equation) Derive(m dynamo.State, t float64) dynamo.State {
	h := e.hPool.Get()
	defer e.hPool.Put(h)
	e.Field.Compute(m, t, h)

	dm := make(dynamo.State, len(m))
	e.Apply(m, h, dm)
	return dm
}

// Apply accumulates the LLG terms for field h into dm.
func (e *Equation) Apply(m, h, dm dynamo.State) {
	mx, my, mz := dynamo.Components(m)
	hx, hy, hz := dynamo.Components(h)
	dx, dy, dz := dynamo.Components(dm)

	dynamo.ParallelFor(len(mx), parallelChunk, func(start, end int) {
		for i := start; i < end; i++ {
			Damping(e.Alpha, e.Gamma, mx[i], my[i], mz[i], hx[i], hy[i], hz[i], &dx[i], &dy[i], &dz[i])
			if e.Precession {
				Precession(e.Alpha, e.Gamma, mx[i], my[i], mz[i], hx[i], hy[i], hz[i], &dx[i], &dy[i], &dz[i])
			}
			if e.C != 0 {
				Relaxation(e.C, mx[i], my[i], mz[i], &dx[i], &dy[i], &dz[i])
			}
		}
	})
}

func (e *Equation) Energy(m dynamo.State, t float64) float64 {
	return e.Field.TotalEnergy(m, t)
}

func (e *Equation) GetParams() map[string]float64 {
	return map[string]float64{"alpha": e.Alpha, "gamma": e.Gamma, "c": e.C}
}

func (e *Equation) SetParam(name string, v float64) error {
	switch name {
	case "alpha":
		e.Alpha = v
	case "gamma":
		e.Gamma = v
	case "c":
		e.C = v
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}
