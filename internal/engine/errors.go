package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a violated precondition on a sample size,
	// target number, pool size or feat mode.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyBatch reports an evaluation against a batch with no trials.
	// It also matches ErrInvalidArgument under errors.Is.
	ErrEmptyBatch = fmt.Errorf("%w: empty sample batch", ErrInvalidArgument)
)
