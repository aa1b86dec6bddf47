package odds

import (
	"fmt"

	"github.com/MJE43/onering-odds/internal/engine"
)

const (
	MinPoolSize = 1
	MaxPoolSize = 5

	// WearyThreshold is the highest success die face that counts as 0 while Weary.
	WearyThreshold = 3
	// MaxFeatValue is the largest feat face added to the roll; the rune is not a number.
	MaxFeatValue = 10
)

// Variant is the set of rules that apply to a whole table.
type Variant struct {
	FeatMode  FeatMode `json:"feat_mode" yaml:"feat_mode"`
	Weary     bool     `json:"weary" yaml:"weary"`
	Miserable bool     `json:"miserable" yaml:"miserable"`
}

// Validate checks the feat mode.
func (v Variant) Validate() error {
	if !v.FeatMode.orNormal().Valid() {
		return fmt.Errorf("%w: unknown feat mode %q", engine.ErrInvalidArgument, v.FeatMode)
	}
	return nil
}

// Config is a single query: one cell of a table.
type Config struct {
	Target   int `json:"target"`
	PoolSize int `json:"pool_size"`
	Variant
}

// Validate checks target, pool size and feat mode.
func (c Config) Validate() error {
	if err := ValidateTarget(c.Target); err != nil {
		return err
	}
	if err := ValidatePoolSize(c.PoolSize); err != nil {
		return err
	}
	return c.Variant.Validate()
}

// ValidateTarget rejects non-positive target numbers.
func ValidateTarget(target int) error {
	if target <= 0 {
		return fmt.Errorf("%w: target must be positive, got %d", engine.ErrInvalidArgument, target)
	}
	return nil
}

// ValidatePoolSize rejects pool sizes outside [MinPoolSize, MaxPoolSize].
func ValidatePoolSize(poolSize int) error {
	if poolSize < MinPoolSize || poolSize > MaxPoolSize {
		return fmt.Errorf("%w: pool size must be between %d and %d, got %d",
			engine.ErrInvalidArgument, MinPoolSize, MaxPoolSize, poolSize)
	}
	return nil
}
