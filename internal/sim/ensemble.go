package sim

import (
	"context"
	"runtime"

	"github.com/san-kum/magsim/internal/dynamo"
	"golang.org/x/sync/errgroup"
)

// RunFactory builds an independent simulator and initial state for one
// ensemble member. Systems with time-dependent fields carry mutable state,
// so members must not share them.
type RunFactory func(seed int64) (*Simulator, dynamo.State, error)

type Ensemble struct {
	factory   RunFactory
	numRuns   int
	seedStart int64
}

func NewEnsemble(factory RunFactory, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{factory: factory, numRuns: numRuns, seedStart: seedStart}
}

// Run executes all members in parallel. The first error cancels the rest.
func (e *Ensemble) Run(ctx context.Context, cfg dynamo.Config) ([]*dynamo.Result, error) {
	results := make([]*dynamo.Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < e.numRuns; i++ {
		g.Go(func() error {
			seed := e.seedStart + int64(i)
			s, x0, err := e.factory(seed)
			if err != nil {
				return err
			}

			cfgCopy := cfg
			cfgCopy.Seed = seed
			results[i], err = s.Run(ctx, x0, cfgCopy)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
