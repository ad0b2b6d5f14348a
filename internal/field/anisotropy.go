package field

import (
	"fmt"
	"math"

	"github.com/san-kum/magsim/internal/dynamo"
)

// UniaxialAnisotropy favours alignment of m with a single easy axis.
type UniaxialAnisotropy struct {
	Label  string
	K1     float64
	Axis   [3]float64
	Ms     float64
	Volume float64
}

// NewUniaxialAnisotropy normalizes axis and checks K1 >= 0, Ms > 0.
func NewUniaxialAnisotropy(k1 float64, axis [3]float64, ms, volume float64) (*UniaxialAnisotropy, error) {
	if k1 < 0 {
		return nil, fmt.Errorf("%w: K1 must be non-negative, got %g", ErrInvalidParameter, k1)
	}
	if ms <= 0 {
		return nil, fmt.Errorf("%w: Ms must be positive, got %g", ErrInvalidParameter, ms)
	}
	norm := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if norm == 0 {
		return nil, fmt.Errorf("%w: anisotropy axis must be non-zero", ErrInvalidParameter)
	}
	return &UniaxialAnisotropy{
		K1:     k1,
		Axis:   [3]float64{axis[0] / norm, axis[1] / norm, axis[2] / norm},
		Ms:     ms,
		Volume: volume,
	}, nil
}

func (a *UniaxialAnisotropy) Name() string {
	if a.Label != "" {
		return a.Label
	}
	return "Anisotropy"
}

// AddField adds (2 K1 / (μ0 Ms)) (m·a) a.
func (a *UniaxialAnisotropy) AddField(m, h dynamo.State, _ float64) {
	coeff := 2 * a.K1 / (Mu0 * a.Ms)
	mx, my, mz := dynamo.Components(m)
	hx, hy, hz := dynamo.Components(h)
	for i := range mx {
		ma := mx[i]*a.Axis[0] + my[i]*a.Axis[1] + mz[i]*a.Axis[2]
		hx[i] += coeff * ma * a.Axis[0]
		hy[i] += coeff * ma * a.Axis[1]
		hz[i] += coeff * ma * a.Axis[2]
	}
}

// Energy returns Σ K1 (1 - (m·a)²) V.
func (a *UniaxialAnisotropy) Energy(m dynamo.State, _ float64) float64 {
	mx, my, mz := dynamo.Components(m)
	sum := 0.0
	for i := range mx {
		ma := mx[i]*a.Axis[0] + my[i]*a.Axis[1] + mz[i]*a.Axis[2]
		sum += 1 - ma*ma
	}
	return a.K1 * a.Volume * sum
}
