package optim

import (
	"context"
	"math"
	"math/rand"
	"runtime"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// DEConfig parameterizes DifferentialEvolution.
type DEConfig struct {
	// PopFactor times the dimension gives the population size.
	PopFactor      int `yaml:"pop_factor"`
	MaxGenerations int `yaml:"max_generations"`
	// Mutation factor F is drawn from [MutationMin, MutationMax) once per
	// generation (dither).
	MutationMin float64 `yaml:"mutation_min"`
	MutationMax float64 `yaml:"mutation_max"`
	// Crossover is the binomial recombination probability CR.
	Crossover float64 `yaml:"crossover"`
	// Tol stops the search once std(costs) <= Tol·|mean(costs)|.
	Tol     float64 `yaml:"tol"`
	Seed    int64   `yaml:"seed"`
	Workers int     `yaml:"workers"`
}

func DefaultDEConfig() DEConfig {
	return DEConfig{
		PopFactor:      15,
		MaxGenerations: 50,
		MutationMin:    0.5,
		MutationMax:    1,
		Crossover:      0.7,
		Tol:            0.01,
		Seed:           42,
	}
}

// DifferentialEvolution implements the best1bin strategy with deferred
// updating: each generation's trials are drawn serially from one seeded
// source, evaluated concurrently into fixed slots and only then compared
// against the population. Results do not depend on Workers.
type DifferentialEvolution struct {
	cfg      DEConfig
	log      logr.Logger
	observer Observer
}

type Option func(*DifferentialEvolution)

func WithLogger(log logr.Logger) Option {
	return func(d *DifferentialEvolution) { d.log = log }
}

func WithObserver(o Observer) Option {
	return func(d *DifferentialEvolution) { d.observer = o }
}

func NewDifferentialEvolution(cfg DEConfig, opts ...Option) *DifferentialEvolution {
	def := DefaultDEConfig()
	if cfg.PopFactor < 1 {
		cfg.PopFactor = def.PopFactor
	}
	if cfg.MaxGenerations <= 0 {
		cfg.MaxGenerations = def.MaxGenerations
	}
	if cfg.MutationMax <= 0 {
		cfg.MutationMin, cfg.MutationMax = def.MutationMin, def.MutationMax
	}
	if cfg.MutationMin > cfg.MutationMax {
		cfg.MutationMin, cfg.MutationMax = cfg.MutationMax, cfg.MutationMin
	}
	if cfg.Crossover < 0 || cfg.Crossover > 1 {
		cfg.Crossover = def.Crossover
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	d := &DifferentialEvolution{cfg: cfg, log: logr.Discard()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DifferentialEvolution) Config() DEConfig { return d.cfg }

// Minimize searches the box. On cancellation it returns the best point
// evaluated so far together with ctx.Err().
func (d *DifferentialEvolution) Minimize(ctx context.Context, f Func, bounds []Bound) (Result, error) {
	if err := validateBounds(bounds); err != nil {
		return Result{Cost: math.Inf(1)}, err
	}

	dim := len(bounds)
	n := max(d.cfg.PopFactor*dim, 5)
	rng := rand.New(rand.NewSource(d.cfg.Seed))

	pop := latinHypercube(rng, n, bounds)
	costs := make([]float64, n)
	best := Result{Cost: math.Inf(1)}

	done, err := d.evaluate(ctx, f, pop, costs)
	best.Evaluations += done.count()
	for i := range pop {
		if done[i] && costs[i] < best.Cost {
			best.X, best.Cost = clone(pop[i]), costs[i]
		}
	}
	if err != nil {
		return best, err
	}
	bestIdx := argmin(costs)

	trials := make([][]float64, n)
	for i := range trials {
		trials[i] = make([]float64, dim)
	}
	trialCosts := make([]float64, n)

	for gen := 1; gen <= d.cfg.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			return best, err
		}

		scale := d.cfg.MutationMin
		if d.cfg.MutationMax > d.cfg.MutationMin {
			scale += rng.Float64() * (d.cfg.MutationMax - d.cfg.MutationMin)
		}
		for i := range trials {
			d.trial(rng, trials[i], pop, i, bestIdx, scale, bounds)
		}

		done, err := d.evaluate(ctx, f, trials, trialCosts)
		best.Evaluations += done.count()
		for i := range trials {
			if done[i] && trialCosts[i] < best.Cost {
				best.X, best.Cost = clone(trials[i]), trialCosts[i]
			}
		}
		if err != nil {
			return best, err
		}

		for i := range pop {
			if trialCosts[i] <= costs[i] {
				copy(pop[i], trials[i])
				costs[i] = trialCosts[i]
			}
		}
		bestIdx = argmin(costs)
		best.Generations = gen

		spread, converged := d.converged(costs)
		d.log.V(1).Info("generation complete",
			"generation", gen,
			"bestCost", costs[bestIdx],
			"scale", scale,
			"spread", spread)
		if d.observer != nil {
			d.observer(Progress{
				Generation:  gen,
				Best:        clone(pop[bestIdx]),
				BestCost:    costs[bestIdx],
				Spread:      spread,
				Evaluations: best.Evaluations,
			})
		}
		if converged {
			best.Converged = true
			break
		}
	}

	d.log.Info("differential evolution finished",
		"cost", best.Cost,
		"generations", best.Generations,
		"evaluations", best.Evaluations,
		"converged", best.Converged)
	return best, nil
}

// trial builds best + F·(r1 - r2) crossed binomially with member i. At least
// one gene comes from the mutant; out-of-range genes are redrawn uniformly.
func (d *DifferentialEvolution) trial(rng *rand.Rand, dst []float64, pop [][]float64, i, bestIdx int, scale float64, bounds []Bound) {
	n := len(pop)
	r1 := rng.Intn(n - 1)
	if r1 >= i {
		r1++
	}
	r2 := rng.Intn(n - 2)
	for _, skip := range sortedPair(i, r1) {
		if r2 >= skip {
			r2++
		}
	}

	dim := len(dst)
	fill := rng.Intn(dim)
	for j := 0; j < dim; j++ {
		if j == fill || rng.Float64() < d.cfg.Crossover {
			dst[j] = pop[bestIdx][j] + scale*(pop[r1][j]-pop[r2][j])
		} else {
			dst[j] = pop[i][j]
		}
	}
	for j, b := range bounds {
		if dst[j] < b.Lo || dst[j] > b.Hi {
			dst[j] = b.Lo + rng.Float64()*b.Width()
		}
	}
}

func sortedPair(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

type slots []bool

func (s slots) count() int {
	n := 0
	for _, ok := range s {
		if ok {
			n++
		}
	}
	return n
}

// evaluate fills costs[i] = f(xs[i]) with at most Workers goroutines.
// done marks the slots that finished before cancellation.
func (d *DifferentialEvolution) evaluate(ctx context.Context, f Func, xs [][]float64, costs []float64) (slots, error) {
	done := make(slots, len(xs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Workers)
	for i := range xs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			costs[i] = finite(f(xs[i]))
			done[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return done, err
	}
	return done, ctx.Err()
}

func (d *DifferentialEvolution) converged(costs []float64) (float64, bool) {
	for _, c := range costs {
		if math.IsInf(c, 0) {
			return math.Inf(1), false
		}
	}
	mean, std := stat.MeanStdDev(costs, nil)
	// population standard deviation, matching the convergence rule
	std *= math.Sqrt(float64(len(costs)-1) / float64(len(costs)))
	spread := std
	if mean != 0 {
		spread = std / math.Abs(mean)
	}
	return spread, std <= d.cfg.Tol*math.Abs(mean)
}

// latinHypercube places one sample in each of n equal strata per dimension,
// with strata paired across dimensions by independent permutations.
func latinHypercube(rng *rand.Rand, n int, bounds []Bound) [][]float64 {
	dim := len(bounds)
	seg := 1 / float64(n)
	samples := make([][]float64, n)
	for i := range samples {
		samples[i] = make([]float64, dim)
		for j := range samples[i] {
			samples[i][j] = seg*rng.Float64() + float64(i)*seg
		}
	}

	pop := make([][]float64, n)
	for i := range pop {
		pop[i] = make([]float64, dim)
	}
	for j, b := range bounds {
		order := rng.Perm(n)
		for i := range pop {
			pop[i][j] = b.Lo + samples[order[i]][j]*b.Width()
		}
	}
	return pop
}

func argmin(xs []float64) int {
	idx := 0
	for i, x := range xs {
		if x < xs[idx] {
			idx = i
		}
	}
	return idx
}
