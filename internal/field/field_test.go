package field

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/san-kum/magsim/internal/dynamo"
)

const tolerance = 1e-12

var approx = cmpopts.EquateApprox(1e-12, 1e-9)

func TestEffectiveField_AddDuplicate(t *testing.T) {
	ef := NewEffectiveField(1)
	if err := ef.Add(NewZeeman([3]float64{0, 0, 1}, 1, 1)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	err := ef.Add(NewZeeman([3]float64{1, 0, 0}, 1, 1))
	if !errors.Is(err, ErrDuplicateInteraction) {
		t.Errorf("expected ErrDuplicateInteraction, got %v", err)
	}

	second := NewZeeman([3]float64{1, 0, 0}, 1, 1)
	second.Label = "Zeeman2"
	if err := ef.Add(second); err != nil {
		t.Errorf("add with distinct label failed: %v", err)
	}
}

func TestEffectiveField_Get(t *testing.T) {
	ef := NewEffectiveField(1)
	z := NewZeeman([3]float64{0, 0, 1}, 1, 1)
	_ = ef.Add(z)

	got, err := ef.Get("Zeeman")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != z {
		t.Error("Get returned a different interaction")
	}

	_, err = ef.Get("Exchange")
	if !errors.Is(err, ErrUnknownInteraction) {
		t.Fatalf("expected ErrUnknownInteraction, got %v", err)
	}
	var unknown *UnknownInteractionError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected *UnknownInteractionError, got %T", err)
	}
	if diff := cmp.Diff([]string{"Zeeman"}, unknown.Known); diff != "" {
		t.Errorf("known names mismatch (-want +got):\n%s", diff)
	}
}

func TestEffectiveField_NamesRemove(t *testing.T) {
	ef := NewEffectiveField(1)
	anis, _ := NewUniaxialAnisotropy(1, [3]float64{0, 0, 1}, 1, 1)
	_ = ef.Add(NewZeeman([3]float64{}, 1, 1))
	_ = ef.Add(anis)

	if diff := cmp.Diff([]string{"Anisotropy", "Zeeman"}, ef.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	if err := ef.Remove("Zeeman"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if ef.Exists("Zeeman") {
		t.Error("Zeeman still registered after Remove")
	}
	if err := ef.Remove("Zeeman"); !errors.Is(err, ErrUnknownInteraction) {
		t.Errorf("expected ErrUnknownInteraction on second remove, got %v", err)
	}
}

func TestEffectiveField_ComputeSums(t *testing.T) {
	ef := NewEffectiveField(2)
	_ = ef.Add(NewZeeman([3]float64{1, 2, 3}, 1, 1))
	other := NewZeeman([3]float64{10, 0, 0}, 1, 1)
	other.Label = "bias"
	_ = ef.Add(other)

	m := dynamo.Uniform(2, [3]float64{0, 0, 1})
	h := dynamo.State{99, 99, 99, 99, 99, 99}
	ef.Compute(m, 0, h)

	want := dynamo.State{11, 11, 2, 2, 3, 3}
	if diff := cmp.Diff(want, h); diff != "" {
		t.Errorf("field mismatch (-want +got):\n%s", diff)
	}
}

func TestZeemanEnergy(t *testing.T) {
	ms := 8.6e5
	z := NewZeeman([3]float64{0, 0, 1e5}, ms, 1e-27)

	tests := []struct {
		m    [3]float64
		want float64
	}{
		{[3]float64{0, 0, 1}, -Mu0 * ms * 1e-27 * 1e5},
		{[3]float64{0, 0, -1}, Mu0 * ms * 1e-27 * 1e5},
		{[3]float64{1, 0, 0}, 0},
	}
	for _, tt := range tests {
		got := z.Energy(dynamo.Uniform(1, tt.m), 0)
		if math.Abs(got-tt.want) > math.Abs(tt.want)*1e-12+1e-40 {
			t.Errorf("Energy(m=%v) = %g, want %g", tt.m, got, tt.want)
		}
	}
}

func TestAnisotropyEnergy_SimpleConfigurations(t *testing.T) {
	anis, err := NewUniaxialAnisotropy(1, [3]float64{0, 0, 1}, 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		m    [3]float64
		want float64
	}{
		{[3]float64{0, 0, 1}, 0},
		{[3]float64{0, 0, -1}, 0},
		{[3]float64{0, 1, 0}, 1},
		{[3]float64{-1, 0, 0}, 1},
	}
	for _, tt := range tests {
		got := anis.Energy(dynamo.Uniform(1, tt.m), 0)
		if math.Abs(got-tt.want) > tolerance {
			t.Errorf("Energy(m=%v) = %v, want %v", tt.m, got, tt.want)
		}
	}
}

func TestAnisotropyField(t *testing.T) {
	ms := 1.0
	anis, _ := NewUniaxialAnisotropy(1, [3]float64{0, 0, 2}, ms, 1)
	if anis.Axis != [3]float64{0, 0, 1} {
		t.Errorf("axis not normalized: %v", anis.Axis)
	}

	s := math.Sqrt(0.5)
	m := dynamo.State{s, 0, s}
	h := make(dynamo.State, 3)
	anis.AddField(m, h, 0)

	want := dynamo.State{0, 0, 2 / Mu0 * s}
	if diff := cmp.Diff(want, h, approx); diff != "" {
		t.Errorf("field mismatch (-want +got):\n%s", diff)
	}
}

func TestAnisotropyInvalid(t *testing.T) {
	tests := []struct {
		name string
		k1   float64
		axis [3]float64
		ms   float64
	}{
		{"negative K1", -1, [3]float64{0, 0, 1}, 1},
		{"zero Ms", 1, [3]float64{0, 0, 1}, 0},
		{"zero axis", 1, [3]float64{}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUniaxialAnisotropy(tt.k1, tt.axis, tt.ms, 1)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestTimeZeeman_Oscillates(t *testing.T) {
	z := NewTimeZeeman([3]float64{0, 0, 1}, [3]float64{2, 0, 0}, 1, 0, 1, 1)
	if z.H != [3]float64{0, 0, 1} {
		t.Errorf("initial field = %v", z.H)
	}

	z.Update(0.25)
	if math.Abs(z.H[0]-2) > tolerance || z.H[2] != 1 {
		t.Errorf("field at quarter period = %v", z.H)
	}
}

func TestTimeZeeman_SwitchOff(t *testing.T) {
	z := NewTimeZeeman([3]float64{0, 0, 1}, [3]float64{}, 0, 1e-9, 1, 1)
	ef := NewEffectiveField(1)
	_ = ef.Add(z)

	h := make(dynamo.State, 3)
	ef.Compute(dynamo.Uniform(1, [3]float64{0, 0, 1}), 0.5e-9, h)
	if h[2] != 1 {
		t.Errorf("field before t_off = %v", h)
	}

	ef.Compute(dynamo.Uniform(1, [3]float64{0, 0, 1}), 1e-9, h)
	if h[2] != 0 || !z.SwitchedOff() {
		t.Errorf("field after t_off = %v, switched off %v", h, z.SwitchedOff())
	}

	// stays off even if time goes backwards inside a step
	ef.Compute(dynamo.Uniform(1, [3]float64{0, 0, 1}), 0, h)
	if h[2] != 0 {
		t.Errorf("field revived after switch-off: %v", h)
	}
}

func TestDiscreteTimeZeeman(t *testing.T) {
	_, err := NewDiscreteTimeZeeman([3]float64{}, [3]float64{}, 0, 0, 0, 1, 1)
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}

	z, err := NewDiscreteTimeZeeman([3]float64{}, [3]float64{1, 0, 0}, 1, 0.1, 0, 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	z.Update(0.05)
	if z.H[0] != 0 {
		t.Errorf("field refreshed before dt_update: %v", z.H)
	}
	z.Update(0.125)
	want := math.Sin(2 * math.Pi * 0.125)
	if math.Abs(z.H[0]-want) > tolerance {
		t.Errorf("field after dt_update = %v, want %v", z.H[0], want)
	}
	z.Update(0.2)
	if math.Abs(z.H[0]-want) > tolerance {
		t.Errorf("field refreshed too early: %v", z.H[0])
	}
}

func TestDiscreteTimeZeeman_FrozenUntilOff(t *testing.T) {
	z, err := NewDiscreteTimeZeeman([3]float64{0, 0, 5}, [3]float64{1, 0, 0}, 1, 0, 2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	z.Update(1.25)
	if z.H != [3]float64{0, 0, 5} {
		t.Errorf("frozen field changed: %v", z.H)
	}
	z.Update(2)
	if z.H != [3]float64{} {
		t.Errorf("field not switched off: %v", z.H)
	}
}

func TestTimeZeeman_Rewind(t *testing.T) {
	pulse := NewTimeZeeman([3]float64{1e5, 0, 0}, [3]float64{}, 0, 2e-10, 1, 1)
	discrete, err := NewDiscreteTimeZeeman([3]float64{}, [3]float64{1, 0, 0}, 1, 0.1, 0, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	discrete.Label = "discrete"

	ef := NewEffectiveField(1)
	_ = ef.Add(pulse)
	_ = ef.Add(discrete)
	_ = ef.Add(NewZeeman([3]float64{0, 0, 1}, 1, 1))

	ef.Update(0.625)
	if !pulse.SwitchedOff() {
		t.Fatal("pulse not switched off")
	}

	ef.Rewind()
	if pulse.SwitchedOff() || pulse.H != [3]float64{1e5, 0, 0} {
		t.Errorf("pulse not rewound: H=%v off=%v", pulse.H, pulse.SwitchedOff())
	}
	if discrete.H != [3]float64{} {
		t.Errorf("discrete field not back at t=0: %v", discrete.H)
	}

	// the refresh clock restarts, so the first dt_update after t=0 refreshes
	ef.Update(0.125)
	want := math.Sin(2 * math.Pi * 0.125)
	if math.Abs(discrete.H[0]-want) > tolerance {
		t.Errorf("discrete field after rewind = %v, want %v", discrete.H[0], want)
	}
}

func TestZeeman_SetValueAverage(t *testing.T) {
	tests := []struct {
		name string
		h    [3]float64
	}{
		{"zero", [3]float64{}},
		{"along z", [3]float64{0, 0, 8e4}},
		{"oblique", [3]float64{1e3, -2e3, 5e2}},
	}

	z := NewZeeman([3]float64{1, 1, 1}, 1, 1)
	ef := NewEffectiveField(2)
	_ = ef.Add(z)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z.SetValue(tt.h)
			if z.Average() != tt.h {
				t.Errorf("Average() = %v, want %v", z.Average(), tt.h)
			}
			h := make(dynamo.State, 6)
			ef.Compute(dynamo.Uniform(2, [3]float64{0, 0, 1}), 0, h)
			if got := dynamo.Average(h); got != tt.h {
				t.Errorf("computed field = %v, want %v", got, tt.h)
			}
		})
	}
}

func TestTotalEnergy(t *testing.T) {
	ef := NewEffectiveField(1)
	anis, _ := NewUniaxialAnisotropy(3, [3]float64{0, 0, 1}, 1, 1)
	_ = ef.Add(anis)
	_ = ef.Add(NewZeeman([3]float64{1, 0, 0}, 1, 1))

	got := ef.TotalEnergy(dynamo.Uniform(1, [3]float64{1, 0, 0}), 0)
	want := 3 - Mu0
	if math.Abs(got-want) > tolerance {
		t.Errorf("TotalEnergy = %v, want %v", got, want)
	}
}
