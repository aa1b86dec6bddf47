package engine

import "fmt"

const (
	// SuccessDicePerTrial is the widest success pool the batch supports.
	SuccessDicePerTrial = 6
	// FeatDicePerTrial covers the Favored and Ill-favored pair.
	FeatDicePerTrial = 2

	SuccessFaces = 6
	FeatFaces    = 12

	// FeatEye is the Eye of Sauron face of the feat die.
	FeatEye uint8 = 0
	// FeatRune is the Gandalf rune face of the feat die.
	FeatRune uint8 = 11

	DefaultSampleSize       = 200_000
	DefaultSeed       int64 = 676732
)

const (
	successStream = "success"
	featStream    = "feat"
)

// Batch is a fixed sample of independent trials. Each trial holds six d6
// success dice and two zero-indexed d12 feat dice.
//
// # Layout
//
// Dice are stored column-major: die k of every trial is the contiguous
// range [k*N, (k+1)*N) of its buffer. Evaluation code works a whole column at
// a time.
//
// # Immutability
//
// A Batch is never written after GenerateBatch returns, so it can be shared
// across goroutines without locking. Column views must be treated as
// read-only.
type Batch struct {
	n       int
	seed    int64
	success []uint8
	feat    []uint8
}

// GenerateBatch rolls n trials from seed.
//
// # Determinism
//
// The same (n, seed) always yields a bit-identical batch. Success and feat
// dice come from separate streams of the seed, so neither depends on how
// many dice of the other kind were drawn.
func GenerateBatch(n int, seed int64) (*Batch, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: sample size must be positive, got %d", ErrInvalidArgument, n)
	}

	b := &Batch{
		n:       n,
		seed:    seed,
		success: make([]uint8, n*SuccessDicePerTrial),
		feat:    make([]uint8, n*FeatDicePerTrial),
	}

	NewByteGenerator(seed, successStream, 0).Fill(b.success, SuccessFaces, 1)
	NewByteGenerator(seed, featStream, 0).Fill(b.feat, FeatFaces, 0)

	return b, nil
}

// Len returns the number of trials. A nil batch has none.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return b.n
}

// Seed returns the seed the batch was generated from.
func (b *Batch) Seed() int64 {
	if b == nil {
		return 0
	}
	return b.seed
}

// SuccessColumn returns success die k (0-based) of every trial. A nil batch
// has empty columns.
func (b *Batch) SuccessColumn(k int) []uint8 {
	if k < 0 || k >= SuccessDicePerTrial {
		panic(fmt.Sprintf("engine: success column %d out of range", k))
	}
	if b == nil {
		return nil
	}
	return column(b.success, b.n, k)
}

// FeatColumn returns feat die k (0 or 1) of every trial. A nil batch has
// empty columns.
func (b *Batch) FeatColumn(k int) []uint8 {
	if k < 0 || k >= FeatDicePerTrial {
		panic(fmt.Sprintf("engine: feat column %d out of range", k))
	}
	if b == nil {
		return nil
	}
	return column(b.feat, b.n, k)
}

// Trial returns copies of the dice of trial i. It panics when i is outside
// [0, Len()).
func (b *Batch) Trial(i int) (success [SuccessDicePerTrial]uint8, feat [FeatDicePerTrial]uint8) {
	if i < 0 || i >= b.Len() {
		panic(fmt.Sprintf("engine: trial %d out of range [0, %d)", i, b.Len()))
	}
	for k := range success {
		success[k] = b.success[k*b.n+i]
	}
	for k := range feat {
		feat[k] = b.feat[k*b.n+i]
	}
	return success, feat
}

func column(buf []uint8, n, k int) []uint8 {
	lo, hi := k*n, (k+1)*n
	return buf[lo:hi:hi]
}
