package objective

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidSpec = errors.New("objective: invalid performance spec")

// Spec holds the performance targets of one optimization run.
type Spec struct {
	// TargetPM is the required phase margin in degrees.
	TargetPM float64 `json:"targetPhaseMargin" yaml:"target_pm"`
	// MinBandwidth is the minimum gain-crossover frequency in rad/s.
	MinBandwidth *float64 `json:"minBandwidth,omitempty" yaml:"min_bandwidth,omitempty"`
	// MaxSteadyStateError bounds the unit-step tracking error, in [0, 1).
	MaxSteadyStateError *float64 `json:"maxSteadyStateError,omitempty" yaml:"max_steady_state_error,omitempty"`
}

// Float returns a pointer to v, for optional Spec fields.
func Float(v float64) *float64 { return &v }

func (s Spec) Validate() error {
	if !(s.TargetPM > 0) || s.TargetPM >= 180 {
		return fmt.Errorf("%w: target phase margin %g outside (0, 180)", ErrInvalidSpec, s.TargetPM)
	}
	if s.MinBandwidth != nil {
		if bw := *s.MinBandwidth; !(bw > 0) || math.IsInf(bw, 0) {
			return fmt.Errorf("%w: minimum bandwidth %g must be positive", ErrInvalidSpec, bw)
		}
	}
	if s.MaxSteadyStateError != nil {
		if e := *s.MaxSteadyStateError; !(e >= 0 && e < 1) {
			return fmt.Errorf("%w: maximum steady-state error %g outside [0, 1)", ErrInvalidSpec, e)
		}
	}
	return nil
}
