package optim

import (
	"context"
	"math"
	"sync"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func sphere(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += v * v
	}
	return s
}

func rosenbrock(x []float64) float64 {
	a, b := 1-x[0], x[1]-x[0]*x[0]
	return a*a + 100*b*b
}

func box(dim int, lo, hi float64) []Bound {
	b := make([]Bound, dim)
	for i := range b {
		b[i] = Bound{Lo: lo, Hi: hi}
	}
	return b
}

var _ = Describe("DifferentialEvolution", func() {
	var cfg DEConfig

	BeforeEach(func() {
		cfg = DefaultDEConfig()
		cfg.Tol = 0
	})

	Context("on analytic functions", func() {
		It("finds the minimum of the sphere", func() {
			cfg.MaxGenerations = 200
			res, err := NewDifferentialEvolution(cfg).Minimize(context.Background(), sphere, box(3, -5, 5))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Cost).To(BeNumerically("<", 1e-6))
			for _, v := range res.X {
				Expect(v).To(BeNumerically("~", 0, 1e-3))
			}
		})

		It("finds the Rosenbrock valley minimum", func() {
			cfg.MaxGenerations = 400
			res, err := NewDifferentialEvolution(cfg).Minimize(context.Background(), rosenbrock, box(2, -2, 2))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Cost).To(BeNumerically("<", 1e-3))
			Expect(res.X[0]).To(BeNumerically("~", 1, 0.05))
			Expect(res.X[1]).To(BeNumerically("~", 1, 0.1))
		})
	})

	Context("budget and bounds", func() {
		It("counts one evaluation per member and generation", func() {
			cfg.MaxGenerations = 10
			res, err := NewDifferentialEvolution(cfg).Minimize(context.Background(), sphere, box(3, -1, 1))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Generations).To(Equal(10))
			Expect(res.Evaluations).To(Equal(45 * 11))
			Expect(res.Converged).To(BeFalse())
		})

		It("never evaluates outside the box", func() {
			bounds := []Bound{{Lo: 0.1, Hi: 500}, {Lo: 0.01, Hi: 100}, {Lo: 0.01, Hi: 100}}
			var mu sync.Mutex
			var outside [][]float64
			f := func(x []float64) float64 {
				for j, b := range bounds {
					if x[j] < b.Lo || x[j] > b.Hi {
						mu.Lock()
						outside = append(outside, append([]float64(nil), x...))
						mu.Unlock()
					}
				}
				return math.Abs(x[0]-250) + x[1] - x[2]
			}
			_, err := NewDifferentialEvolution(cfg).Minimize(context.Background(), f, bounds)
			Expect(err).NotTo(HaveOccurred())
			Expect(outside).To(BeEmpty())
		})

		It("stops once the population has converged", func() {
			cfg.Tol = 0.01
			res, err := NewDifferentialEvolution(cfg).Minimize(context.Background(), func([]float64) float64 { return 3 }, box(2, 0, 1))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Converged).To(BeTrue())
			Expect(res.Generations).To(Equal(1))
		})

		It("rejects empty and inverted bounds", func() {
			de := NewDifferentialEvolution(cfg)
			_, err := de.Minimize(context.Background(), sphere, nil)
			Expect(err).To(MatchError(ErrInvalidBounds))
			_, err = de.Minimize(context.Background(), sphere, []Bound{{Lo: 1, Hi: 0}})
			Expect(err).To(MatchError(ErrInvalidBounds))
		})

		It("treats NaN costs as worse than any number", func() {
			f := func(x []float64) float64 {
				if x[0] < 0 {
					return math.NaN()
				}
				return sphere(x)
			}
			res, err := NewDifferentialEvolution(cfg).Minimize(context.Background(), f, box(2, -1, 1))
			Expect(err).NotTo(HaveOccurred())
			Expect(math.IsNaN(res.Cost)).To(BeFalse())
			Expect(res.X[0]).To(BeNumerically(">=", 0))
		})
	})

	Context("determinism", func() {
		It("is bit-identical for any worker count", func() {
			cfg.MaxGenerations = 30
			var results []Result
			for _, workers := range []int{1, 3, 16} {
				c := cfg
				c.Workers = workers
				res, err := NewDifferentialEvolution(c).Minimize(context.Background(), rosenbrock, box(2, -2, 2))
				Expect(err).NotTo(HaveOccurred())
				results = append(results, res)
			}
			Expect(cmp.Diff(results[0], results[1])).To(BeEmpty())
			Expect(cmp.Diff(results[0], results[2])).To(BeEmpty())
		})

		It("depends on the seed", func() {
			cfg.MaxGenerations = 2
			a, _ := NewDifferentialEvolution(cfg).Minimize(context.Background(), sphere, box(3, -5, 5))
			cfg.Seed = 7
			b, _ := NewDifferentialEvolution(cfg).Minimize(context.Background(), sphere, box(3, -5, 5))
			Expect(a.X).NotTo(Equal(b.X))
		})
	})

	Context("cancellation", func() {
		It("returns the best point found so far", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var seen []Progress
			de := NewDifferentialEvolution(cfg, WithObserver(func(p Progress) {
				seen = append(seen, p)
				if p.Generation == 3 {
					cancel()
				}
			}))
			res, err := de.Minimize(ctx, sphere, box(3, -5, 5))

			Expect(err).To(MatchError(context.Canceled))
			Expect(res.Generations).To(Equal(3))
			Expect(res.X).To(HaveLen(3))
			Expect(res.Cost).To(Equal(seen[2].BestCost))
			Expect(sphere(res.X)).To(Equal(res.Cost))
		})

		It("reports no point when cancelled before the first evaluation", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			res, err := NewDifferentialEvolution(cfg).Minimize(ctx, sphere, box(3, -5, 5))
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.X).To(BeNil())
			Expect(math.IsInf(res.Cost, 1)).To(BeTrue())
		})
	})

	It("reports monotone progress", func() {
		cfg.MaxGenerations = 20
		var costs []float64
		de := NewDifferentialEvolution(cfg, WithObserver(func(p Progress) {
			costs = append(costs, p.BestCost)
		}))
		_, err := de.Minimize(context.Background(), rosenbrock, box(2, -2, 2))
		Expect(err).NotTo(HaveOccurred())
		Expect(costs).To(HaveLen(20))
		for i := 1; i < len(costs); i++ {
			Expect(costs[i]).To(BeNumerically("<=", costs[i-1]))
		}
	})
})
