package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates a non-positive step or duration.
	ErrInvalidConfig = errors.New("sim: invalid config")

	// ErrDiverged indicates the state left the representable range.
	ErrDiverged = errors.New("sim: state diverged (NaN or Inf detected)")

	// ErrDimensionMismatch indicates an initial state of the wrong size.
	ErrDimensionMismatch = errors.New("sim: dimension mismatch between state and system")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("%v at step %d (t=%.4g)", e.Wrapped, e.Step, e.Time)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
