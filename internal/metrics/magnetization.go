package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/magsim/internal/dynamo"
)

// NormDrift tracks the largest deviation of |m| from one at any point.
type NormDrift struct {
	maxDrift float64
}

func NewNormDrift() *NormDrift { return &NormDrift{} }

func (n *NormDrift) Name() string { return "norm_drift" }

func (n *NormDrift) Observe(x dynamo.State, t float64) {
	n.maxDrift = math.Max(n.maxDrift, dynamo.MaxNormDeviation(x))
}

func (n *NormDrift) Value() float64 { return n.maxDrift }

func (n *NormDrift) Reset() { n.maxDrift = 0 }

// AverageComponent reports one component of the spatially averaged
// magnetization at the last observed sample.
type AverageComponent struct {
	axis int
	last float64
}

func NewAverageComponent(axis int) *AverageComponent {
	if axis < 0 || axis > 2 {
		panic(fmt.Sprintf("metrics: invalid axis %d", axis))
	}
	return &AverageComponent{axis: axis}
}

func (a *AverageComponent) Name() string {
	return "m" + string("xyz"[a.axis])
}

func (a *AverageComponent) Observe(x dynamo.State, t float64) {
	a.last = dynamo.Average(x)[a.axis]
}

func (a *AverageComponent) Value() float64 { return a.last }

func (a *AverageComponent) Reset() { a.last = 0 }

// Torque reports max_i |dm_i/dt| at the last observed sample. It falls
// towards zero as the magnetization reaches equilibrium.
type Torque struct {
	sys  dynamo.System
	last float64
}

func NewTorque(sys dynamo.System) *Torque {
	return &Torque{sys: sys}
}

func (q *Torque) Name() string { return "max_dmdt" }

func (q *Torque) Observe(x dynamo.State, t float64) {
	dx, dy, dz := dynamo.Components(q.sys.Derive(x, t))
	maxNorm := 0.0
	for i := range dx {
		maxNorm = math.Max(maxNorm, math.Sqrt(dx[i]*dx[i]+dy[i]*dy[i]+dz[i]*dz[i]))
	}
	q.last = maxNorm
}

func (q *Torque) Value() float64 { return q.last }

func (q *Torque) Reset() { q.last = 0 }
