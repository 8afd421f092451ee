package objective

import (
	"fmt"
	"math"

	"github.com/san-kum/leadlag/internal/compensator"
	"github.com/san-kum/leadlag/internal/freqresp"
	"github.com/san-kum/leadlag/internal/lti"
)

const (
	DefaultPenaltyWeight = 100.0
	DefaultMaxPenalty    = 1e6
	// DefaultRewardCap bounds the phase-margin excess that earns a reward, in degrees.
	DefaultRewardCap = 30.0

	pmRewardRate  = 0.01
	sseRewardRate = 0.1
)

// Options tunes the cost function.
type Options struct {
	PenaltyWeight float64 `yaml:"penalty_weight"`
	MaxPenalty    float64 `yaml:"max_penalty"`
	RewardCap     float64 `yaml:"reward_cap"`
	// Frequencies is the sweep margins are computed on.
	Frequencies []float64 `yaml:"-"`
}

func DefaultOptions() Options {
	return Options{
		PenaltyWeight: DefaultPenaltyWeight,
		MaxPenalty:    DefaultMaxPenalty,
		RewardCap:     DefaultRewardCap,
	}
}

type Status int

const (
	StatusOK Status = iota
	// StatusInvalid marks candidates rejected before evaluation.
	StatusInvalid
	// StatusFault marks candidates whose evaluation failed numerically.
	StatusFault
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalid:
		return "invalid"
	case StatusFault:
		return "fault"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Terms are the individual cost contributions. Inactive terms are zero.
type Terms struct {
	PhaseMargin      float64 `json:"phaseMargin"`
	Bandwidth        float64 `json:"bandwidth"`
	SteadyStateError float64 `json:"steadyStateError"`
}

func (t Terms) Sum() float64 {
	return t.PhaseMargin + t.Bandwidth + t.SteadyStateError
}

// Evaluation is the typed result of scoring one candidate.
type Evaluation struct {
	Candidate compensator.Candidate
	Status    Status
	Cost      float64
	Terms     Terms
	Margins   freqresp.Margins
	// Bandwidth is the gain crossover used by the bandwidth term.
	Bandwidth float64
	// SteadyStateError is 1/(1+|L(0)|), zero for integrating loops.
	SteadyStateError float64
	Err              error
}

// Objective is safe for concurrent use; it holds no mutable state.
type Objective struct {
	plant *lti.TransferFunction
	spec  Spec
	opts  Options
	w     []float64
}

func New(plant *lti.TransferFunction, spec Spec, opts Options) (*Objective, error) {
	if plant == nil {
		return nil, fmt.Errorf("objective: nil plant: %w", lti.ErrInvalidModel)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if opts.PenaltyWeight <= 0 {
		opts.PenaltyWeight = DefaultPenaltyWeight
	}
	if opts.MaxPenalty <= 0 {
		opts.MaxPenalty = DefaultMaxPenalty
	}
	if opts.RewardCap <= 0 {
		opts.RewardCap = DefaultRewardCap
	}
	w := opts.Frequencies
	if len(w) < 2 {
		w = freqresp.LogSpace(freqresp.DefaultMarginMinFreq, freqresp.DefaultMarginMaxFreq, freqresp.DefaultMarginPoints)
	}
	return &Objective{plant: plant, spec: spec, opts: opts, w: w}, nil
}

func (o *Objective) Spec() Spec { return o.spec }

func (o *Objective) MaxPenalty() float64 { return o.opts.MaxPenalty }

// Cost adapts the objective to an optimizer parameter vector (K, z, p).
func (o *Objective) Cost(x []float64) float64 {
	return o.Evaluate(compensator.FromVector(x)).Cost
}

// Evaluate scores c. It never panics.
func (o *Objective) Evaluate(c compensator.Candidate) (ev Evaluation) {
	ev.Candidate = c
	if err := c.Validate(); err != nil {
		ev.Status = StatusInvalid
		ev.Cost = o.opts.MaxPenalty
		ev.Err = err
		return ev
	}

	defer func() {
		if r := recover(); r != nil {
			ev = o.fault(c, fmt.Errorf("objective: evaluation panicked: %v", r))
		}
	}()

	l, err := c.OpenLoop(o.plant)
	if err != nil {
		return o.fault(c, err)
	}
	ev.Margins = freqresp.ComputeMargins(l, o.w)
	ev.Bandwidth = o.bandwidth(l, ev.Margins)
	ev.SteadyStateError = steadyStateError(l)
	ev.Terms = o.terms(ev)
	ev.Cost = ev.Terms.Sum()

	if math.IsNaN(ev.Cost) || math.IsInf(ev.Cost, 0) {
		return o.fault(c, fmt.Errorf("objective: non-finite cost %v (terms %+v)", ev.Cost, ev.Terms))
	}
	ev.Status = StatusOK
	return ev
}

func (o *Objective) fault(c compensator.Candidate, err error) Evaluation {
	return Evaluation{
		Candidate: c,
		Status:    StatusFault,
		Cost:      o.opts.MaxPenalty,
		Err:       err,
	}
}

func (o *Objective) terms(ev Evaluation) Terms {
	var t Terms
	W := o.opts.PenaltyWeight
	target := o.spec.TargetPM
	excess := math.Min(ev.Margins.PhaseMargin-target, o.opts.RewardCap)

	if ev.Margins.PhaseMargin < target {
		t.PhaseMargin = W * sq((target-ev.Margins.PhaseMargin)/target)
	} else {
		t.PhaseMargin = -W * pmRewardRate * excess
	}

	if o.spec.MinBandwidth != nil {
		minBW := *o.spec.MinBandwidth
		if ev.Bandwidth < minBW {
			t.Bandwidth = W * sq((minBW-ev.Bandwidth)/minBW)
		} else {
			t.Bandwidth = -W * pmRewardRate * excess
		}
	}

	if o.spec.MaxSteadyStateError != nil {
		maxE := *o.spec.MaxSteadyStateError
		scale := maxE
		if scale == 0 {
			scale = 1
		}
		if ev.SteadyStateError > maxE {
			t.SteadyStateError = W * sq((ev.SteadyStateError-maxE)/scale)
		} else {
			t.SteadyStateError = -W * sseRewardRate * (maxE - ev.SteadyStateError) / scale
		}
	}
	return t
}

// bandwidth is the gain crossover, or the sweep edge the loop gain stays on
// the far side of when there is none.
func (o *Objective) bandwidth(l *lti.TransferFunction, m freqresp.Margins) float64 {
	if m.HasGainCrossover() {
		return m.GainCrossover
	}
	hi := o.w[len(o.w)-1]
	mag := freqresp.Bode(l, []float64{hi}).Magnitude[0]
	if mag > 0 {
		return hi
	}
	return 0
}

func steadyStateError(l *lti.TransferFunction) float64 {
	k := l.DCGain()
	if math.IsInf(k, 1) {
		return 0
	}
	return 1 / (1 + k)
}

func sq(x float64) float64 { return x * x }
