// Package optim minimizes scalar functions over a bounded box.
//
// DifferentialEvolution is the default strategy; GridSearch is an
// exhaustive alternative for small boxes and for cross-checking.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var ErrInvalidBounds = errors.New("optim: invalid bounds")

// Func is the objective. It must be safe for concurrent calls.
type Func func(x []float64) float64

type Bound struct {
	Lo float64 `yaml:"lo" json:"lo"`
	Hi float64 `yaml:"hi" json:"hi"`
}

func (b Bound) Width() float64 { return b.Hi - b.Lo }

type Result struct {
	X           []float64
	Cost        float64
	Generations int
	Evaluations int
	Converged   bool
}

// Progress is reported after every generation (or grid row).
type Progress struct {
	Generation  int
	Best        []float64
	BestCost    float64
	Spread      float64
	Evaluations int
}

type Observer func(Progress)

type Minimizer interface {
	Minimize(ctx context.Context, f Func, bounds []Bound) (Result, error)
}

func validateBounds(bounds []Bound) error {
	if len(bounds) == 0 {
		return fmt.Errorf("%w: no dimensions", ErrInvalidBounds)
	}
	for i, b := range bounds {
		if math.IsNaN(b.Lo) || math.IsNaN(b.Hi) || math.IsInf(b.Lo, 0) || math.IsInf(b.Hi, 0) {
			return fmt.Errorf("%w: dimension %d is not finite", ErrInvalidBounds, i)
		}
		if b.Lo >= b.Hi {
			return fmt.Errorf("%w: dimension %d has lo %g >= hi %g", ErrInvalidBounds, i, b.Lo, b.Hi)
		}
	}
	return nil
}

// finite maps NaN to +Inf so comparisons stay total.
func finite(c float64) float64 {
	if math.IsNaN(c) {
		return math.Inf(1)
	}
	return c
}

func clone(x []float64) []float64 {
	return append([]float64(nil), x...)
}
