package design

import (
	"github.com/go-logr/logr"

	"github.com/san-kum/leadlag/internal/freqresp"
	"github.com/san-kum/leadlag/internal/objective"
	"github.com/san-kum/leadlag/internal/optim"
)

const (
	StrategyDE   = "de"
	StrategyGrid = "grid"

	DefaultStepSamples     = 1000
	DefaultHorizonFactor   = 7.0
	DefaultFallbackHorizon = 10.0
	DefaultGridPoints      = 12
)

// StepOptions controls the closed-loop step simulation.
type StepOptions struct {
	Samples int
	// Horizon fixes the simulated time; zero selects it from the poles.
	Horizon float64
	// HorizonFactor multiplies the slowest stable time constant.
	HorizonFactor float64
	// FallbackHorizon is used for integrating, unstable or static loops.
	FallbackHorizon float64
	// Method names the integrator: exact, rk4, rk45 or euler.
	Method string
}

type Options struct {
	// Bounds of K, z and p.
	Bounds     []optim.Bound
	Strategy   string
	DE         optim.DEConfig
	GridPoints int
	Objective  objective.Options

	MarginSweep  freqresp.Sweep
	BodeSweep    freqresp.Sweep
	NyquistSweep freqresp.Sweep
	Step         StepOptions

	Logger   logr.Logger
	Observer optim.Observer
}

func DefaultBounds() []optim.Bound {
	return []optim.Bound{
		{Lo: 0.1, Hi: 500},
		{Lo: 0.01, Hi: 100},
		{Lo: 0.01, Hi: 100},
	}
}

func DefaultOptions() Options {
	return Options{
		Bounds:     DefaultBounds(),
		Strategy:   StrategyDE,
		DE:         optim.DefaultDEConfig(),
		GridPoints: DefaultGridPoints,
		Objective:  objective.DefaultOptions(),
		MarginSweep: freqresp.Sweep{
			Min:    freqresp.DefaultMarginMinFreq,
			Max:    freqresp.DefaultMarginMaxFreq,
			Points: freqresp.DefaultMarginPoints,
		},
		BodeSweep: freqresp.Sweep{
			Min:    freqresp.DefaultMinFreq,
			Max:    freqresp.DefaultMaxFreq,
			Points: freqresp.DefaultBodePoints,
		},
		NyquistSweep: freqresp.Sweep{
			Min:    freqresp.DefaultMinFreq,
			Max:    freqresp.DefaultMaxFreq,
			Points: freqresp.DefaultNyquistPoints,
		},
		Step: StepOptions{
			Samples:         DefaultStepSamples,
			HorizonFactor:   DefaultHorizonFactor,
			FallbackHorizon: DefaultFallbackHorizon,
			Method:          "exact",
		},
		Logger: logr.Discard(),
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if len(o.Bounds) == 0 {
		o.Bounds = def.Bounds
	}
	if o.Strategy == "" {
		o.Strategy = def.Strategy
	}
	if o.DE == (optim.DEConfig{}) {
		o.DE = def.DE
	}
	if o.GridPoints < 2 {
		o.GridPoints = def.GridPoints
	}
	if !o.MarginSweep.Valid() {
		o.MarginSweep = def.MarginSweep
	}
	if !o.BodeSweep.Valid() {
		o.BodeSweep = def.BodeSweep
	}
	if !o.NyquistSweep.Valid() {
		o.NyquistSweep = def.NyquistSweep
	}
	if o.Step.Samples < 2 {
		o.Step.Samples = def.Step.Samples
	}
	if o.Step.HorizonFactor <= 0 {
		o.Step.HorizonFactor = def.Step.HorizonFactor
	}
	if o.Step.FallbackHorizon <= 0 {
		o.Step.FallbackHorizon = def.Step.FallbackHorizon
	}
	if o.Step.Method == "" {
		o.Step.Method = def.Step.Method
	}
	return o
}
