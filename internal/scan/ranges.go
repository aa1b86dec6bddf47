package scan

import "github.com/MJE43/onering-odds/internal/odds"

const (
	DefaultMinTarget = 11
	DefaultMaxTarget = 22
)

// Range returns lo..hi inclusive, or nil when hi < lo.
func Range(lo, hi int) []int {
	if hi < lo {
		return nil
	}
	out := make([]int, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		out = append(out, v)
	}
	return out
}

// DefaultTargets is the row axis used when a caller supplies none.
func DefaultTargets() []int { return Range(DefaultMinTarget, DefaultMaxTarget) }

// DefaultPoolSizes is the column axis used when a caller supplies none.
func DefaultPoolSizes() []int { return Range(odds.MinPoolSize, odds.MaxPoolSize) }
