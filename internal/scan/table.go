package scan

import (
	"fmt"

	"github.com/MJE43/onering-odds/internal/engine"
	"github.com/MJE43/onering-odds/internal/odds"
)

// Table is a grid of success probabilities: Cells[r][c] is the estimate for
// Targets[r] with PoolSizes[c] success dice.
type Table struct {
	Targets    []int        `json:"targets"`
	PoolSizes  []int        `json:"pool_sizes"`
	Variant    odds.Variant `json:"variant"`
	Cells      [][]float64  `json:"cells"`
	SampleSize int          `json:"sample_size"`
	Seed       int64        `json:"seed"`
}

// TableRequest describes one table build.
type TableRequest struct {
	Targets   []int
	PoolSizes []int
	Variant   odds.Variant
	Batch     *engine.Batch
}

// Cell returns the probability at row r, column c.
func (t *Table) Cell(r, c int) float64 {
	return t.Cells[r][c]
}

// BuildTable estimates every (target, pool size) pair in order. Rows follow
// targets and columns follow poolSizes exactly as given. The first failing
// cell aborts the build and no table is returned.
func BuildTable(targets, poolSizes []int, v odds.Variant, b *engine.Batch) (*Table, error) {
	req := TableRequest{Targets: targets, PoolSizes: poolSizes, Variant: v, Batch: b}
	ev, err := prepare(req)
	if err != nil {
		return nil, err
	}

	table := newTable(req, ev)
	for r, target := range targets {
		if err := fillRow(ev, table.Cells[r], target, poolSizes); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// prepare validates the axes and derives the evaluator shared by every cell.
func prepare(req TableRequest) (*odds.Evaluator, error) {
	if len(req.Targets) == 0 {
		return nil, fmt.Errorf("%w: no target numbers", engine.ErrInvalidArgument)
	}
	if len(req.PoolSizes) == 0 {
		return nil, fmt.Errorf("%w: no pool sizes", engine.ErrInvalidArgument)
	}
	return odds.NewEvaluator(req.Batch, req.Variant)
}

func newTable(req TableRequest, ev *odds.Evaluator) *Table {
	cells := make([][]float64, len(req.Targets))
	for r := range cells {
		cells[r] = make([]float64, len(req.PoolSizes))
	}
	return &Table{
		Targets:    append([]int(nil), req.Targets...),
		PoolSizes:  append([]int(nil), req.PoolSizes...),
		Variant:    ev.Variant(),
		Cells:      cells,
		SampleSize: req.Batch.Len(),
		Seed:       req.Batch.Seed(),
	}
}

func fillRow(ev *odds.Evaluator, row []float64, target int, poolSizes []int) error {
	for c, pool := range poolSizes {
		p, err := ev.Estimate(target, pool)
		if err != nil {
			return fmt.Errorf("cell target=%d pool_size=%d: %w", target, pool, err)
		}
		row[c] = p
	}
	return nil
}
