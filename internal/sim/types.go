package sim

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

type Dynamics interface {
	Derivative(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// Outputer maps state and input to the scalar measured output.
type Outputer interface {
	Output(x State, u Control) float64
}

type Integrator interface {
	Step(dyn Dynamics, x State, u Control, t float64, dt float64) State
}

type Controller interface {
	Compute(x State, t float64) Control
}

// Metric accumulates a scalar figure from the output trajectory.
type Metric interface {
	Name() string
	Observe(t, y float64)
	Value() float64
	Reset()
}

type Config struct {
	Dt       float64
	Duration float64
	// ValidateState stops the run at the first NaN/Inf state.
	ValidateState bool
}

type Result struct {
	States  []State
	Times   []float64
	Outputs []float64
	Metrics map[string]float64
	// StepsTaken counts integrator steps; it is len(Times)-1.
	StepsTaken int
}

// Response is a sampled scalar time response.
type Response struct {
	Time      []float64 `json:"time"`
	Amplitude []float64 `json:"amplitude"`
}

func (r Response) Len() int { return len(r.Time) }

// Final returns the last sample, NaN for an empty response.
func (r Response) Final() float64 {
	if len(r.Amplitude) == 0 {
		return math.NaN()
	}
	return r.Amplitude[len(r.Amplitude)-1]
}

func (r *Result) Response() Response {
	return Response{
		Time:      append([]float64(nil), r.Times...),
		Amplitude: append([]float64(nil), r.Outputs...),
	}
}
