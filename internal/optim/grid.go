package optim

import (
	"context"
	"math"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/floats"
)

// GridSearch evaluates f on the tensor grid of Points values per dimension.
// Dimensions with a positive lower bound are spaced logarithmically.
type GridSearch struct {
	Points   int
	Log      logr.Logger
	Observer Observer
}

func NewGridSearch(points int) *GridSearch {
	if points < 2 {
		points = 2
	}
	return &GridSearch{Points: points, Log: logr.Discard()}
}

func (g *GridSearch) Minimize(ctx context.Context, f Func, bounds []Bound) (Result, error) {
	if err := validateBounds(bounds); err != nil {
		return Result{Cost: math.Inf(1)}, err
	}

	axes := make([][]float64, len(bounds))
	for i, b := range bounds {
		axes[i] = make([]float64, g.Points)
		if b.Lo > 0 {
			floats.LogSpan(axes[i], b.Lo, b.Hi)
		} else {
			floats.Span(axes[i], b.Lo, b.Hi)
		}
	}

	best := Result{Cost: math.Inf(1)}
	current := make([]float64, len(bounds))
	err := g.searchRecursive(ctx, 0, current, axes, f, &best)

	g.Log.V(1).Info("grid search finished", "cost", best.Cost, "evaluations", best.Evaluations)
	return best, err
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current []float64,
	axes [][]float64,
	f Func,
	best *Result,
) error {
	if depth == len(axes) {
		cost := finite(f(current))
		best.Evaluations++
		if cost < best.Cost {
			best.Cost = cost
			best.X = clone(current)
		}
		return nil
	}

	for i, val := range axes[depth] {
		if err := ctx.Err(); err != nil {
			return err
		}
		current[depth] = val
		if err := g.searchRecursive(ctx, depth+1, current, axes, f, best); err != nil {
			return err
		}
		if depth == 0 {
			best.Generations = i + 1
			if g.Observer != nil {
				g.Observer(Progress{
					Generation:  i + 1,
					Best:        clone(best.X),
					BestCost:    best.Cost,
					Evaluations: best.Evaluations,
				})
			}
		}
	}
	return nil
}
