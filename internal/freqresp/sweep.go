package freqresp

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Design sweeps used for presentation data.
const (
	DefaultMinFreq       = 1e-2
	DefaultMaxFreq       = 1e3
	DefaultBodePoints    = 200
	DefaultNyquistPoints = 500

	// The margin sweep reaches a decade further on each side so crossovers
	// near the presentation edges are still bracketed.
	DefaultMarginMinFreq = 1e-3
	DefaultMarginMaxFreq = 1e4
	DefaultMarginPoints  = 1000
)

// Sweep describes a logarithmic frequency grid.
type Sweep struct {
	Min    float64 `yaml:"min" json:"min"`
	Max    float64 `yaml:"max" json:"max"`
	Points int     `yaml:"points" json:"points"`
}

// Frequencies materializes the grid.
func (s Sweep) Frequencies() []float64 {
	return LogSpace(s.Min, s.Max, s.Points)
}

// Valid reports whether the sweep describes a usable grid.
func (s Sweep) Valid() bool {
	return s.Min > 0 && s.Max > s.Min && s.Points >= 2 && !math.IsInf(s.Max, 0)
}

// LogSpace returns n points equally spaced in log10 between lo and hi
// inclusive.
func LogSpace(lo, hi float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{lo}
	}
	return floats.LogSpan(make([]float64, n), lo, hi)
}
