package field

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/magsim/internal/dynamo"
)

// Zeeman is a uniform external field H in A/m.
type Zeeman struct {
	Label  string
	H      [3]float64
	Ms     float64
	Volume float64
}

func NewZeeman(h [3]float64, ms, volume float64) *Zeeman {
	return &Zeeman{H: h, Ms: ms, Volume: volume}
}

func (z *Zeeman) Name() string {
	if z.Label != "" {
		return z.Label
	}
	return "Zeeman"
}

func (z *Zeeman) SetValue(h [3]float64) { z.H = h }

func (z *Zeeman) AddField(_, h dynamo.State, _ float64) {
	addUniform(h, z.H)
}

// Energy returns -μ0 Ms V Σ m·H.
func (z *Zeeman) Energy(m dynamo.State, _ float64) float64 {
	x, y, zc := dynamo.Components(m)
	sum := 0.0
	for i := range x {
		sum += x[i]*z.H[0] + y[i]*z.H[1] + zc[i]*z.H[2]
	}
	return -Mu0 * z.Ms * z.Volume * sum
}

// Average returns the applied field, which is uniform over the mesh.
func (z *Zeeman) Average() [3]float64 { return z.H }

// TimeZeeman is an external field H(t) = H0 + H1 sin(2πft).
//
// If TOff is positive the field is switched off for good once t reaches
// TOff. If DtUpdate is positive the field is only re-evaluated when at
// least DtUpdate has passed since the last refresh.
type TimeZeeman struct {
	Zeeman
	H0, H1    [3]float64
	Frequency float64
	TOff      float64
	DtUpdate  float64

	tLast       float64
	switchedOff bool
}

func NewTimeZeeman(h0, h1 [3]float64, frequency, tOff, ms, volume float64) *TimeZeeman {
	z := &TimeZeeman{
		Zeeman:    Zeeman{Ms: ms, Volume: volume},
		H0:        h0,
		H1:        h1,
		Frequency: frequency,
		TOff:      tOff,
	}
	z.H = z.valueAt(0)
	return z
}

// NewDiscreteTimeZeeman returns a TimeZeeman refreshed every dtUpdate.
// With dtUpdate zero the field stays at its t=0 value until tOff.
func NewDiscreteTimeZeeman(h0, h1 [3]float64, frequency, dtUpdate, tOff, ms, volume float64) (*TimeZeeman, error) {
	if dtUpdate <= 0 && tOff <= 0 {
		return nil, fmt.Errorf("%w: at least one of dt_update and t_off must be given", ErrInvalidParameter)
	}
	z := NewTimeZeeman(h0, h1, frequency, tOff, ms, volume)
	z.DtUpdate = dtUpdate
	if dtUpdate <= 0 {
		// frozen until switch-off
		z.DtUpdate = math.Inf(1)
	}
	return z, nil
}

func (z *TimeZeeman) Name() string {
	if z.Label != "" {
		return z.Label
	}
	return "TimeZeeman"
}

func (z *TimeZeeman) SwitchedOff() bool { return z.switchedOff }

func (z *TimeZeeman) Update(t float64) {
	if z.switchedOff {
		return
	}
	if z.TOff > 0 && t >= z.TOff {
		z.switchOff(t)
		return
	}
	if z.DtUpdate > 0 {
		if t-z.tLast < z.DtUpdate {
			return
		}
		slog.Debug("updating external field", "t", t, "since_last", t-z.tLast)
		z.tLast = t
	}
	z.H = z.valueAt(t)
}

// Rewind undoes a switch-off and restarts the refresh clock at t=0.
func (z *TimeZeeman) Rewind() {
	z.switchedOff = false
	z.tLast = 0
	z.H = z.valueAt(0)
}

func (z *TimeZeeman) switchOff(t float64) {
	slog.Debug("switching external field off", "t", t)
	z.H = [3]float64{}
	z.switchedOff = true
}

func (z *TimeZeeman) valueAt(t float64) [3]float64 {
	s := math.Sin(2 * math.Pi * z.Frequency * t)
	return [3]float64{
		z.H0[0] + z.H1[0]*s,
		z.H0[1] + z.H1[1]*s,
		z.H0[2] + z.H1[2]*s,
	}
}

func addUniform(h dynamo.State, v [3]float64) {
	x, y, z := dynamo.Components(h)
	for i := range x {
		x[i] += v[0]
		y[i] += v[1]
		z[i] += v[2]
	}
}
