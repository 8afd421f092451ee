// Package metrics derives figures of merit from simulated step responses,
// either through a Tracker fed by the simulator or through Compute for
// already sampled responses.
package metrics

import (
	"math"

	"github.com/san-kum/leadlag/internal/sim"
)

const (
	// SettlingBand is the ±2% band around the final value.
	SettlingBand = 0.02

	riseLow  = 0.1
	riseHigh = 0.9
)

// StepInfo summarizes a unit-step response. Times that are never reached
// within the horizon are NaN.
type StepInfo struct {
	RiseTime     float64 `json:"riseTime"`
	SettlingTime float64 `json:"settlingTime"`
	// Overshoot is the peak excursion beyond the final value in percent.
	Overshoot   float64 `json:"overshoot"`
	Peak        float64 `json:"peak"`
	PeakTime    float64 `json:"peakTime"`
	SteadyState float64 `json:"steadyState"`
	// IAE is the integral of |1 - y| over the horizon.
	IAE float64 `json:"iae"`
}

// Compute takes the final sample as the steady-state value.
func Compute(t, y []float64) StepInfo {
	info := StepInfo{
		RiseTime:     math.NaN(),
		SettlingTime: math.NaN(),
		Peak:         math.NaN(),
		PeakTime:     math.NaN(),
		SteadyState:  math.NaN(),
	}
	n := min(len(t), len(y))
	if n == 0 {
		return info
	}
	t, y = t[:n], y[:n]

	final := y[n-1]
	info.SteadyState = final
	info.IAE = iae(t, y)

	sign := 1.0
	if final < 0 {
		sign = -1
	}
	peak := 0
	for i := range y {
		if sign*y[i] > sign*y[peak] {
			peak = i
		}
	}
	info.Peak, info.PeakTime = y[peak], t[peak]

	if final == 0 {
		return info
	}
	info.Overshoot = math.Max(0, 100*sign*(y[peak]-final)/math.Abs(final))

	t10 := crossing(t, y, riseLow*final)
	t90 := crossing(t, y, riseHigh*final)
	info.RiseTime = t90 - t10

	band := SettlingBand * math.Abs(final)
	last := -1
	for i := range y {
		if math.Abs(y[i]-final) > band {
			last = i
		}
	}
	// the final sample is inside the band by construction
	if last < 0 {
		info.SettlingTime = t[0]
	} else {
		info.SettlingTime = t[last+1]
	}
	return info
}

// crossing returns the first time y reaches level, interpolating linearly
// between samples.
func crossing(t, y []float64, level float64) float64 {
	up := level > 0
	for i := range y {
		if (up && y[i] >= level) || (!up && y[i] <= level) {
			if i == 0 {
				return t[0]
			}
			return t[i-1] + (level-y[i-1])*(t[i]-t[i-1])/(y[i]-y[i-1])
		}
	}
	return math.NaN()
}

func iae(t, y []float64) float64 {
	sum := 0.0
	for i := 1; i < len(t); i++ {
		sum += 0.5 * (math.Abs(1-y[i-1]) + math.Abs(1-y[i])) * (t[i] - t[i-1])
	}
	return sum
}

// Tracker is a sim.Metric that buffers the output trajectory once and
// derives the whole StepInfo from it. Its scalar value is the IAE.
type Tracker struct {
	t, y []float64
}

var _ sim.Metric = (*Tracker)(nil)

func NewTracker() *Tracker {
	return &Tracker{}
}

func (tr *Tracker) Name() string { return "iae" }

func (tr *Tracker) Observe(t, y float64) {
	tr.t = append(tr.t, t)
	tr.y = append(tr.y, y)
}

func (tr *Tracker) Value() float64 { return iae(tr.t, tr.y) }

func (tr *Tracker) Reset() {
	tr.t = tr.t[:0]
	tr.y = tr.y[:0]
}

// Info computes the figures of everything observed since the last Reset.
func (tr *Tracker) Info() StepInfo { return Compute(tr.t, tr.y) }
