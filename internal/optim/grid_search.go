package optim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"github.com/san-kum/magsim/internal/config"
	"github.com/san-kum/magsim/internal/experiment"
	"golang.org/x/sync/errgroup"
)

// Point is one grid cell and the metric its run produced.
type Point struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// GridSearch runs a config at every point of a parameter grid.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("%d parameters but %d ranges", len(params), len(ranges))
	}
	probe := config.DefaultConfig()
	for i, p := range params {
		if err := probe.Set(p, 0); err != nil {
			return nil, err
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("empty range for %s", p)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// Grid enumerates all parameter combinations, last parameter fastest.
func (g *GridSearch) Grid() []map[string]float64 {
	var out []map[string]float64
	g.enumerate(0, make(map[string]float64), &out)
	return out
}

func (g *GridSearch) enumerate(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val
		g.enumerate(depth+1, newParams, out)
	}
}

// Search runs base at every grid point in parallel and reports metricName
// for each. Runs that fail keep their error in Point.Err and do not stop
// the search; cancelling ctx does.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, reg *experiment.Registry, metricName string) ([]Point, error) {
	grid := g.Grid()
	points := make([]Point, len(grid))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, params := range grid {
		eg.Go(func() error {
			points[i] = Point{Params: params, Value: math.NaN()}

			cfg := *base
			for k, v := range params {
				if err := cfg.Set(k, v); err != nil {
					return err
				}
			}

			exp, err := experiment.Build(&cfg, reg)
			if err != nil {
				points[i].Err = err
				return nil
			}
			result, err := exp.Run(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				slog.Debug("grid point failed", "params", params, "err", err)
				points[i].Err = err
				return nil
			}

			v, ok := result.Metrics[metricName]
			if !ok {
				points[i].Err = fmt.Errorf("unknown metric: %s", metricName)
				return nil
			}
			points[i].Value = v
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// Best returns the successful point with the smallest value, or the
// largest when maximize is set. ok is false when every point failed.
func Best(points []Point, maximize bool) (best Point, ok bool) {
	for _, p := range points {
		if p.Err != nil || math.IsNaN(p.Value) {
			continue
		}
		if !ok || (maximize && p.Value > best.Value) || (!maximize && p.Value < best.Value) {
			best, ok = p, true
		}
	}
	return best, ok
}
