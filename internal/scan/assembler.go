package scan

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Assembler builds tables with rows spread over a bounded set of workers.
// Cells only read the shared batch, so any row order gives the same table.
type Assembler struct {
	workerCount int
}

// NewAssembler creates an assembler; workers <= 0 means GOMAXPROCS.
func NewAssembler(workers int) *Assembler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Assembler{workerCount: workers}
}

// Workers returns the worker limit.
func (a *Assembler) Workers() int { return a.workerCount }

// Build produces the same table as BuildTable. The first failing row cancels
// the others and its error is returned; so is ctx.Err() when ctx ends first.
func (a *Assembler) Build(ctx context.Context, req TableRequest) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ev, err := prepare(req)
	if err != nil {
		return nil, err
	}

	table := newTable(req, ev)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workerCount)
	for r, target := range req.Targets {
		target := target
		row := table.Cells[r]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fillRow(ev, row, target, req.PoolSizes)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return table, nil
}
