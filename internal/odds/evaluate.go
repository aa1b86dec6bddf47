// Package odds estimates success probabilities for a feat die plus a pool of
// success dice against a shared sample batch.
//
// Every function here is a pure read of the batch: derived columns are new
// slices and the batch itself is never written.
package odds

import (
	"fmt"

	"github.com/MJE43/onering-odds/internal/engine"
)

// FeatValues reduces each trial's feat pair according to mode. Normal reads
// only the first die.
func FeatValues(b *engine.Batch, mode FeatMode) ([]uint8, error) {
	if b.Len() == 0 {
		return nil, engine.ErrEmptyBatch
	}

	first := b.FeatColumn(0)
	out := make([]uint8, len(first))

	switch mode.orNormal() {
	case FeatNormal:
		copy(out, first)
	case FeatFavored:
		second := b.FeatColumn(1)
		for i, v := range first {
			if w := second[i]; w > v {
				v = w
			}
			out[i] = v
		}
	case FeatIllFavored:
		second := b.FeatColumn(1)
		for i, v := range first {
			if w := second[i]; w < v {
				v = w
			}
			out[i] = v
		}
	default:
		return nil, fmt.Errorf("%w: unknown feat mode %q", engine.ErrInvalidArgument, mode)
	}

	return out, nil
}

// SuccessRoll returns, per trial, the feat value clamped to [0, MaxFeatValue]
// plus the sum of the first poolSize success dice. While weary, dice showing
// WearyThreshold or less add nothing.
func SuccessRoll(b *engine.Batch, feat []uint8, poolSize int, weary bool) ([]int32, error) {
	if err := ValidatePoolSize(poolSize); err != nil {
		return nil, err
	}
	if b.Len() == 0 {
		return nil, engine.ErrEmptyBatch
	}
	if len(feat) != b.Len() {
		return nil, fmt.Errorf("%w: %d feat values for %d trials", engine.ErrInvalidArgument, len(feat), b.Len())
	}

	roll := make([]int32, len(feat))
	addFeat(roll, feat)
	for k := 0; k < poolSize; k++ {
		addSuccessDie(roll, b.SuccessColumn(k), weary)
	}
	return roll, nil
}

// EstimateSuccess returns the fraction of trials in b that succeed under cfg.
//
// A trial succeeds when the reduced feat die shows the rune or the roll meets
// the target. While miserable, a feat die showing the Eye fails the trial
// regardless; the Eye and the rune are different faces, so that rule never
// cancels a rune.
func EstimateSuccess(b *engine.Batch, cfg Config) (float64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	ev, err := newEvaluator(b, cfg.Variant, cfg.PoolSize)
	if err != nil {
		return 0, err
	}
	return ev.Estimate(cfg.Target, cfg.PoolSize)
}

// Evaluator holds the columns derived from a batch for one Variant: the
// reduced feat die and the cumulative roll for each pool size. Building it
// costs a handful of passes over the batch; each Estimate is one more pass.
// An Evaluator is read-only after construction and safe for concurrent use.
type Evaluator struct {
	variant Variant
	feat    []uint8
	rolls   [][]int32 // rolls[p-1] is the roll with pool size p
}

// NewEvaluator derives the columns for every pool size up to MaxPoolSize.
func NewEvaluator(b *engine.Batch, v Variant) (*Evaluator, error) {
	return newEvaluator(b, v, MaxPoolSize)
}

func newEvaluator(b *engine.Batch, v Variant, maxPool int) (*Evaluator, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	v.FeatMode = v.FeatMode.orNormal()

	feat, err := FeatValues(b, v.FeatMode)
	if err != nil {
		return nil, err
	}

	rolls := make([][]int32, maxPool)
	acc := make([]int32, len(feat))
	addFeat(acc, feat)
	for k := 0; k < maxPool; k++ {
		addSuccessDie(acc, b.SuccessColumn(k), v.Weary)
		rolls[k] = append([]int32(nil), acc...)
	}

	return &Evaluator{variant: v, feat: feat, rolls: rolls}, nil
}

// Variant returns the rules the evaluator was built for.
func (e *Evaluator) Variant() Variant { return e.variant }

// Len returns the number of trials.
func (e *Evaluator) Len() int { return len(e.feat) }

// Estimate returns the success fraction for one target and pool size.
func (e *Evaluator) Estimate(target, poolSize int) (float64, error) {
	if err := ValidateTarget(target); err != nil {
		return 0, err
	}
	if err := ValidatePoolSize(poolSize); err != nil {
		return 0, err
	}
	if poolSize > len(e.rolls) {
		return 0, fmt.Errorf("%w: evaluator only covers pool sizes up to %d", engine.ErrInvalidArgument, len(e.rolls))
	}
	if len(e.feat) == 0 {
		return 0, engine.ErrEmptyBatch
	}

	roll := e.rolls[poolSize-1]
	t := int32(target)
	miserable := e.variant.Miserable
	hits := 0
	for i, f := range e.feat {
		if miserable && f == engine.FeatEye {
			continue
		}
		if f == engine.FeatRune || roll[i] >= t {
			hits++
		}
	}

	return float64(hits) / float64(len(e.feat)), nil
}

func addFeat(dst []int32, feat []uint8) {
	for i, f := range feat {
		if f > MaxFeatValue {
			f = MaxFeatValue
		}
		dst[i] += int32(f)
	}
}

func addSuccessDie(dst []int32, col []uint8, weary bool) {
	if weary {
		for i, v := range col {
			if v > WearyThreshold {
				dst[i] += int32(v)
			}
		}
		return
	}
	for i, v := range col {
		dst[i] += int32(v)
	}
}
