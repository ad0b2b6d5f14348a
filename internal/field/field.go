// Package field assembles the effective field acting on the magnetization.
//
// An [EffectiveField] holds a set of named [Interaction] values. Each
// interaction adds its own field to a shared buffer; interactions that vary
// in time also implement [Updater] and are refreshed before every
// evaluation.
package field

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/san-kum/magsim/internal/dynamo"
)

// Mu0 is the vacuum permeability in T·m/A.
const Mu0 = 4 * math.Pi * 1e-7

var (
	ErrDuplicateInteraction = errors.New("field: interaction names must be unique")
	ErrUnknownInteraction   = errors.New("field: unknown interaction")
	ErrInvalidParameter     = errors.New("field: invalid parameter")
)

// UnknownInteractionError reports a lookup of a name that was never added.
type UnknownInteractionError struct {
	Name  string
	Known []string
}

func (e *UnknownInteractionError) Error() string {
	return fmt.Sprintf("field: unknown interaction %q (known: %s)", e.Name, strings.Join(e.Known, ", "))
}

func (e *UnknownInteractionError) Is(target error) bool {
	return target == ErrUnknownInteraction
}

// Interaction contributes a field (A/m) and an energy (J) for a
// magnetization field m given in component-major layout.
type Interaction interface {
	Name() string
	// AddField accumulates the interaction's field into h.
	AddField(m, h dynamo.State, t float64)
	Energy(m dynamo.State, t float64) float64
}

// Updater is implemented by interactions whose field depends on time.
type Updater interface {
	Update(t float64)
	// Rewind restores the interaction to its t=0 state.
	Rewind()
}

type EffectiveField struct {
	points       int
	interactions map[string]Interaction
	order        []string
}

func NewEffectiveField(points int) *EffectiveField {
	return &EffectiveField{
		points:       points,
		interactions: make(map[string]Interaction),
	}
}

// Points returns the number of mesh points the field is evaluated on.
func (f *EffectiveField) Points() int { return f.points }

func (f *EffectiveField) Add(i Interaction) error {
	name := i.Name()
	if _, ok := f.interactions[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateInteraction, name)
	}
	slog.Debug("adding interaction", "name", name)
	f.interactions[name] = i
	f.order = append(f.order, name)
	return nil
}

func (f *EffectiveField) Exists(name string) bool {
	_, ok := f.interactions[name]
	return ok
}

func (f *EffectiveField) Get(name string) (Interaction, error) {
	i, ok := f.interactions[name]
	if !ok {
		return nil, &UnknownInteractionError{Name: name, Known: f.Names()}
	}
	return i, nil
}

func (f *EffectiveField) Remove(name string) error {
	if !f.Exists(name) {
		return &UnknownInteractionError{Name: name, Known: f.Names()}
	}
	delete(f.interactions, name)
	f.order = slices.DeleteFunc(f.order, func(n string) bool { return n == name })
	return nil
}

// Names returns the registered interaction names in sorted order.
func (f *EffectiveField) Names() []string {
	names := slices.Clone(f.order)
	slices.Sort(names)
	return names
}

// Update refreshes every time-dependent interaction to time t.
func (f *EffectiveField) Update(t float64) {
	for _, name := range f.order {
		if u, ok := f.interactions[name].(Updater); ok {
			u.Update(t)
		}
	}
}

// Rewind returns every time-dependent interaction to t=0.
func (f *EffectiveField) Rewind() {
	for _, name := range f.order {
		if u, ok := f.interactions[name].(Updater); ok {
			u.Rewind()
		}
	}
}

// Compute overwrites h with the total effective field at time t.
// Interactions are summed in insertion order.
func (f *EffectiveField) Compute(m dynamo.State, t float64, h dynamo.State) {
	f.Update(t)
	clear(h)
	for _, name := range f.order {
		f.interactions[name].AddField(m, h, t)
	}
}

func (f *EffectiveField) TotalEnergy(m dynamo.State, t float64) float64 {
	f.Update(t)
	energy := 0.0
	for _, name := range f.order {
		energy += f.interactions[name].Energy(m, t)
	}
	return energy
}
