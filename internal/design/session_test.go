package design

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/leadlag/internal/compensator"
	"github.com/san-kum/leadlag/internal/lti"
	"github.com/san-kum/leadlag/internal/objective"
	"github.com/san-kum/leadlag/internal/optim"
)

var _ = Describe("Session", func() {
	var (
		ctx  context.Context
		spec objective.Spec
	)

	BeforeEach(func() {
		ctx = context.Background()
		spec = objective.Spec{TargetPM: 45}
	})

	Context("construction", func() {
		It("rejects malformed plants before any search", func() {
			_, err := New([]float64{1}, nil, spec, DefaultOptions())
			Expect(err).To(MatchError(lti.ErrInvalidModel))

			_, err = New([]float64{1}, []float64{0, 0}, spec, DefaultOptions())
			Expect(err).To(MatchError(lti.ErrInvalidModel))
		})

		It("rejects unknown strategies and bad specs", func() {
			opts := DefaultOptions()
			opts.Strategy = "annealing"
			_, err := New([]float64{1}, []float64{1, 1}, spec, opts)
			Expect(err).To(MatchError(ErrUnknownStrategy))

			_, err = New([]float64{1}, []float64{1, 1}, objective.Spec{TargetPM: -3}, DefaultOptions())
			Expect(err).To(MatchError(objective.ErrInvalidSpec))
		})

		It("fails response queries before optimization", func() {
			s, err := New([]float64{1}, []float64{1, 1}, spec, DefaultOptions())
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Bode()
			Expect(err).To(MatchError(ErrNotComputed))
			_, err = s.Nyquist()
			Expect(err).To(MatchError(ErrNotComputed))
			_, err = s.Step(ctx)
			Expect(err).To(MatchError(ErrNotComputed))
			_, err = s.Result()
			Expect(err).To(MatchError(ErrNotComputed))
		})
	})

	Context("first-order plant with a 45° target", func() {
		var (
			s   *Session
			res *Result
		)

		BeforeEach(func() {
			var err error
			s, err = New([]float64{1}, []float64{1, 1}, spec, DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			res, err = s.Optimize(ctx)
			Expect(err).NotTo(HaveOccurred())
		})

		It("meets the phase margin", func() {
			Expect(res.Interrupted).To(BeFalse())
			Expect(res.Evaluation.Status).To(Equal(objective.StatusOK))
			if !math.IsInf(res.Margins.PhaseMargin, 1) {
				Expect(res.Margins.PhaseMargin).To(BeNumerically(">=", 44))
			}
		})

		It("classifies the network by alpha", func() {
			Expect(res.Compensator.Type).To(Equal(compensator.Classify(res.Compensator.Alpha)))
			c := res.Candidate
			Expect(res.Compensator.Alpha).To(BeNumerically("~", c.Z/c.P, 1e-12))
			Expect(res.Compensator.T).To(BeNumerically("~", 1/c.Z, 1e-12))
			Expect(res.Compensator.K).To(BeNumerically("~", c.K*c.Z/c.P, 1e-9))
		})

		It("stays inside the search box", func() {
			for i, b := range DefaultBounds() {
				Expect(res.Search.X[i]).To(BeNumerically(">=", b.Lo))
				Expect(res.Search.X[i]).To(BeNumerically("<=", b.Hi))
			}
			Expect(res.Search.Evaluations).To(BeNumerically("<=", 45*51))
		})

		It("is reproducible for a fixed seed", func() {
			other, err := New([]float64{1}, []float64{1, 1}, spec, DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			again, err := other.Optimize(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Candidate).To(Equal(res.Candidate))
			Expect(again.Evaluation.Cost).To(Equal(res.Evaluation.Cost))
		})

		It("closes the loop consistently with the open loop", func() {
			l0 := res.OpenLoop.StaticGain()
			Expect(res.ClosedLoop.StaticGain()).To(BeNumerically("~", l0/(1+l0), 1e-12))
		})

		It("produces Bode data on the presentation grid", func() {
			bode, err := s.Bode()
			Expect(err).NotTo(HaveOccurred())
			Expect(bode.Plant.Len()).To(Equal(200))
			Expect(bode.Compensated.Len()).To(Equal(200))

			w := bode.Frequency()
			Expect(w[0]).To(BeNumerically("~", 1e-2, 1e-15))
			Expect(w[199]).To(BeNumerically("~", 1e3, 1e-9))
			ratio := math.Log10(w[1] / w[0])
			for i := 1; i < len(w); i++ {
				Expect(w[i]).To(BeNumerically(">", w[i-1]))
				Expect(math.Log10(w[i] / w[i-1])).To(BeNumerically("~", ratio, 1e-9))
			}
			Expect(bode.Compensated.Frequency).To(Equal(w))
		})

		It("produces Nyquist data on the finer grid", func() {
			ny, err := s.Nyquist()
			Expect(err).NotTo(HaveOccurred())
			Expect(ny.Real).To(HaveLen(500))
			Expect(ny.Imag).To(HaveLen(500))
		})

		It("simulates the closed-loop step response", func() {
			step, err := s.Step(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(step.Truncated).To(BeFalse())
			Expect(step.Response.Len()).To(Equal(1000))
			Expect(step.Response.Time[0]).To(Equal(0.0))
			Expect(step.Response.Time[999]).To(BeNumerically("~", step.Horizon, 1e-9))
			Expect(step.Response.Final()).To(BeNumerically("~", res.ClosedLoop.StaticGain(), 1e-2))
			Expect(step.Info.SteadyState).To(Equal(step.Response.Final()))
		})
	})

	Context("fifth-order plant with a 60° target", func() {
		It("settles on a design with a stable closed loop", func() {
			spec.TargetPM = 60
			s, err := New([]float64{1}, []float64{1, 5, 10, 10, 5, 1}, spec, DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			res, err := s.Optimize(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Margins.PhaseMargin).To(BeNumerically(">=", spec.TargetPM))
			poles, err := res.ClosedLoop.Poles()
			Expect(err).NotTo(HaveOccurred())
			for _, p := range poles {
				Expect(real(p)).To(BeNumerically("<", 0), "closed-loop pole %v", p)
			}

			step, err := s.Step(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(step.Truncated).To(BeFalse())
			Expect(step.Response.Final()).To(BeNumerically("~", res.ClosedLoop.StaticGain(), 1e-2))
		})
	})

	Context("type-1 plant with a steady-state error bound", func() {
		It("reports zero steady-state error", func() {
			spec.MaxSteadyStateError = objective.Float(0.05)
			s, err := New([]float64{1}, []float64{1, 1, 0}, spec, DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			res, err := s.Optimize(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Evaluation.SteadyStateError).To(Equal(0.0))
			Expect(res.Evaluation.Terms.SteadyStateError).To(BeNumerically("<=", 0))
		})
	})

	Context("cancellation", func() {
		It("keeps the best candidate found before cancellation", func() {
			cctx, cancel := context.WithCancel(ctx)
			defer cancel()

			opts := DefaultOptions()
			opts.DE.Tol = 0
			opts.Observer = func(p optim.Progress) {
				if p.Generation == 2 {
					cancel()
				}
			}
			s, err := New([]float64{1}, []float64{1, 2, 1}, spec, opts)
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Optimize(cctx)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res).NotTo(BeNil())
			Expect(res.Interrupted).To(BeTrue())
			Expect(res.Search.Generations).To(Equal(2))

			_, err = s.Bode()
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports no candidate when cancelled up front", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			s, err := New([]float64{1}, []float64{1, 1}, spec, DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			res, err := s.Optimize(cctx)
			Expect(err).To(MatchError(ErrNoCandidate))
			Expect(err).To(MatchError(context.Canceled))
			Expect(res).To(BeNil())

			_, err = s.Bode()
			Expect(err).To(MatchError(ErrNotComputed))
		})
	})

	Context("grid strategy", func() {
		It("evaluates the full grid", func() {
			opts := DefaultOptions()
			opts.Strategy = StrategyGrid
			opts.GridPoints = 6
			s, err := New([]float64{1}, []float64{1, 1}, spec, opts)
			Expect(err).NotTo(HaveOccurred())
			res, err := s.Optimize(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Search.Evaluations).To(Equal(216))
			Expect(res.Candidate.Validate()).To(Succeed())
		})
	})
})

var _ = Describe("Horizon", func() {
	DescribeTable("selects 7τ of the slowest stable pole",
		func(den []float64, want float64) {
			tf := lti.MustNew([]float64{1}, den)
			Expect(Horizon(tf, DefaultHorizonFactor, DefaultFallbackHorizon)).To(BeNumerically("~", want, 1e-9))
		},
		Entry("first order", []float64{1, 2}, 3.5),
		Entry("two real poles", []float64{1, 11, 10}, 7.0),
		Entry("lightly damped pair", []float64{1, 0.2, 1}, 70.0),
		Entry("integrator", []float64{1, 0}, DefaultFallbackHorizon),
		Entry("unstable", []float64{1, -1}, DefaultFallbackHorizon),
		Entry("static", []float64{4}, DefaultFallbackHorizon),
	)

	It("agrees between exact and RK4 simulation", func() {
		tf := lti.MustNew([]float64{4, 2}, []float64{1, 2.5, 4, 2})
		opts := DefaultOptions().Step
		exact, err := SimulateStep(context.Background(), tf, opts)
		Expect(err).NotTo(HaveOccurred())
		opts.Method = "rk4"
		rk4, err := SimulateStep(context.Background(), tf, opts)
		Expect(err).NotTo(HaveOccurred())
		for i := range exact.Response.Amplitude {
			Expect(exact.Response.Amplitude[i]).To(BeNumerically("~", rk4.Response.Amplitude[i], 1e-6))
		}
	})

	It("rejects unknown integrators", func() {
		opts := DefaultOptions().Step
		opts.Method = "verlet"
		_, err := SimulateStep(context.Background(), lti.MustNew([]float64{1}, []float64{1, 1}), opts)
		Expect(err).To(HaveOccurred())
	})
})
