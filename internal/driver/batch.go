package driver

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/numerus/internal/compiler"
)

// Unit is one named source to compile, typically a file.
type Unit struct {
	Name   string
	Source string
}

// UnitResult pairs a unit with its outcome. Exactly one of Result and Err
// is set once the unit has been attempted.
type UnitResult struct {
	Name   string
	Result *Result
	Err    error
}

// CompileAll compiles units concurrently with at most workers in flight
// (GOMAXPROCS when workers <= 0). A failing unit does not affect the
// others. Results are returned in input order.
//
// When ctx is cancelled no further units are started; those never started
// carry ctx.Err() and CompileAll returns ctx.Err() as well.
func CompileAll(ctx context.Context, units []Unit, opts compiler.Options, workers int) ([]UnitResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]UnitResult, len(units))
	for i, u := range units {
		results[i].Name = u.Name
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, u := range units {
		if err := gctx.Err(); err != nil {
			for j := i; j < len(units); j++ {
				results[j].Err = err
			}
			break
		}

		i, u := i, u
		g.Go(func() error {
			res, err := Compile(u.Source, opts)
			results[i].Result = res
			results[i].Err = err
			if err != nil {
				slog.Debug("unit failed", "unit", u.Name, "error", err)
			}
			return nil
		})
	}

	// Workers never return errors; failures are per unit.
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	slog.Info("batch compiled", "units", len(units), "failed", failed, "workers", workers)

	return results, ctx.Err()
}
