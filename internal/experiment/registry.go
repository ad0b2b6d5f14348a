package experiment

import (
	"fmt"
	"slices"

	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/integrators"
	"github.com/san-kum/magsim/internal/metrics"
)

// Registry maps names used in configs and on the command line to
// integrator and metric constructors.
type Registry struct {
	integrators map[string]func() dynamo.Integrator
	metrics     map[string]func(dynamo.System) dynamo.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
		metrics:     make(map[string]func(dynamo.System) dynamo.Metric),
	}

	for _, name := range integrators.Names() {
		r.integrators[name] = func() dynamo.Integrator {
			in, _ := integrators.New(name)
			return in
		}
	}

	r.metrics["norm_drift"] = func(dynamo.System) dynamo.Metric { return metrics.NewNormDrift() }
	r.metrics["mx"] = func(dynamo.System) dynamo.Metric { return metrics.NewAverageComponent(0) }
	r.metrics["my"] = func(dynamo.System) dynamo.Metric { return metrics.NewAverageComponent(1) }
	r.metrics["mz"] = func(dynamo.System) dynamo.Metric { return metrics.NewAverageComponent(2) }
	r.metrics["energy"] = func(sys dynamo.System) dynamo.Metric { return metrics.NewEnergy(sys) }
	r.metrics["energy_drift"] = func(sys dynamo.System) dynamo.Metric { return metrics.NewEnergyDrift(sys) }
	r.metrics["max_dmdt"] = func(sys dynamo.System) dynamo.Metric { return metrics.NewTorque(sys) }
	r.metrics["stability"] = func(dynamo.System) dynamo.Metric { return metrics.NewStability(1.5) }

	return r
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetMetric(name string, sys dynamo.System) (dynamo.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(sys), nil
}

func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }

func (r *Registry) ListMetrics() []string { return sortedKeys(r.metrics) }

// DefaultMetrics returns the metrics attached to every run.
func (r *Registry) DefaultMetrics(sys dynamo.System) []dynamo.Metric {
	names := []string{"norm_drift", "mx", "my", "mz", "energy_drift", "max_dmdt"}
	out := make([]dynamo.Metric, 0, len(names))
	for _, name := range names {
		out = append(out, r.metrics[name](sys))
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
