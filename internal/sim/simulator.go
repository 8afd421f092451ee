package sim

import (
	"context"
	"fmt"
	"math"
)

type Simulator struct {
	dyn        Dynamics
	integrator Integrator
	controller Controller
	metrics    []Metric
}

func New(dyn Dynamics, integrator Integrator, controller Controller) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		controller: controller,
		metrics:    make([]Metric, 0),
	}
}

func (s *Simulator) AddMetric(m Metric) { s.metrics = append(s.metrics, m) }

// Run integrates from x0 for round(Duration/Dt) steps, recording every sample
// including t = 0. When the system is an Outputer the output is recorded and
// fed to the metrics; otherwise the first state component is used.
// A diverged run returns the samples up to the last valid state.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(x0) != s.dyn.StateDim() {
		return nil, fmt.Errorf("%w: x0 has %d components, system has %d",
			ErrDimensionMismatch, len(x0), s.dyn.StateDim())
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &Result{
		States:  make([]State, 0, steps+1),
		Times:   make([]float64, 0, steps+1),
		Outputs: make([]float64, 0, steps+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		u := s.controller.Compute(x, t)
		y := s.output(x, u)

		result.States = append(result.States, x.Clone())
		result.Times = append(result.Times, t)
		result.Outputs = append(result.Outputs, y)
		for _, m := range s.metrics {
			m.Observe(t, y)
		}

		if i == steps {
			break
		}

		next := s.integrator.Step(s.dyn, x, u, t, cfg.Dt)
		if cfg.ValidateState && !next.IsValid() {
			s.collect(result)
			return result, &SimulationError{Step: i + 1, Time: t + cfg.Dt, Wrapped: ErrDiverged}
		}

		x = next
		// times are multiples of dt rather than a running sum
		t = float64(i+1) * cfg.Dt
		result.StepsTaken++
	}

	s.collect(result)
	return result, nil
}

func (s *Simulator) collect(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func (s *Simulator) output(x State, u Control) float64 {
	if o, ok := s.dyn.(Outputer); ok {
		return o.Output(x, u)
	}
	if len(x) == 0 {
		return 0
	}
	return x[0]
}

func (s *Simulator) validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, cfg.Dt)
	}
	if !(cfg.Duration > 0) {
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalidConfig, cfg.Duration)
	}
	return nil
}
