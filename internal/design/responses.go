package design

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/leadlag/internal/freqresp"
	"github.com/san-kum/leadlag/internal/integrators"
	"github.com/san-kum/leadlag/internal/lti"
	"github.com/san-kum/leadlag/internal/metrics"
	"github.com/san-kum/leadlag/internal/sim"
)

const (
	minHorizon = 1e-3
	maxHorizon = 1e5
	// poles with a real part above -stableEps count as integrating
	stableEps = 1e-9
)

// BodeData holds the plant and compensated open-loop responses on the same
// frequency grid.
type BodeData struct {
	Plant       freqresp.Series
	Compensated freqresp.Series
}

func (b BodeData) Frequency() []float64 { return b.Plant.Frequency }

// StepData is the closed-loop unit-step response and its figures of merit.
type StepData struct {
	Response sim.Response
	Info     metrics.StepInfo
	Horizon  float64
	// Truncated is set when the simulation diverged before the horizon.
	Truncated bool
}

func (s *Session) Bode() (BodeData, error) {
	res, err := s.Result()
	if err != nil {
		return BodeData{}, err
	}
	w := s.opts.BodeSweep.Frequencies()
	return BodeData{
		Plant:       freqresp.Bode(s.plant, w),
		Compensated: freqresp.Bode(res.OpenLoop, w),
	}, nil
}

func (s *Session) Nyquist() (freqresp.NyquistSeries, error) {
	res, err := s.Result()
	if err != nil {
		return freqresp.NyquistSeries{}, err
	}
	return freqresp.Nyquist(res.OpenLoop, s.opts.NyquistSweep.Frequencies()), nil
}

// Step simulates the closed loop from rest under a unit step.
func (s *Session) Step(ctx context.Context) (StepData, error) {
	res, err := s.Result()
	if err != nil {
		return StepData{}, err
	}
	return SimulateStep(ctx, res.ClosedLoop, s.opts.Step)
}

// SimulateStep runs the unit-step response of tf.
func SimulateStep(ctx context.Context, tf *lti.TransferFunction, opts StepOptions) (StepData, error) {
	def := DefaultOptions().Step
	if opts.Samples < 2 {
		opts.Samples = def.Samples
	}
	integ, ok := integrators.New(opts.Method)
	if !ok {
		return StepData{}, fmt.Errorf("design: unknown integrator %q", opts.Method)
	}

	sys, err := sim.FromTransferFunction(tf)
	if err != nil {
		return StepData{}, fmt.Errorf("design: realize closed loop: %w", err)
	}

	horizon := opts.Horizon
	if horizon <= 0 {
		horizon = Horizon(tf, opts.HorizonFactor, opts.FallbackHorizon)
	}

	tracker := metrics.NewTracker()
	simulator := sim.New(sys, integ, sim.StepInput{Amplitude: 1})
	simulator.AddMetric(tracker)
	cfg := sim.Config{
		Dt:            horizon / float64(opts.Samples-1),
		Duration:      horizon,
		ValidateState: true,
	}
	out, err := simulator.Run(ctx, make(sim.State, sys.StateDim()), cfg)
	data := StepData{Horizon: horizon}
	if err != nil {
		if !errors.Is(err, sim.ErrDiverged) {
			return StepData{}, err
		}
		data.Truncated = true
	}
	data.Response = out.Response()
	data.Info = tracker.Info()
	return data, nil
}

// Horizon is factor times the slowest time constant among the poles of tf.
// Complex pairs contribute their envelope 1/|Re p|. Loops with poles on or
// right of the imaginary axis, and static ones, get the fallback.
func Horizon(tf *lti.TransferFunction, factor, fallback float64) float64 {
	if factor <= 0 {
		factor = DefaultHorizonFactor
	}
	if fallback <= 0 {
		fallback = DefaultFallbackHorizon
	}
	poles, err := tf.Poles()
	if err != nil || len(poles) == 0 {
		return fallback
	}
	slowest := 0.0
	for _, p := range poles {
		re := real(p)
		if re > -stableEps {
			return fallback
		}
		slowest = math.Max(slowest, -1/re)
	}
	return math.Min(math.Max(factor*slowest, minHorizon), maxHorizon)
}
