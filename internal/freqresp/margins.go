package freqresp

import (
	"math"
	"math/cmplx"

	"github.com/san-kum/leadlag/internal/lti"
)

// Margins are the classical stability margins of an open loop.
type Margins struct {
	// GainMargin is 1/|L(jω_g)|, +Inf without a phase crossover.
	GainMargin float64
	// PhaseMargin is 180° + ∠L(jω_p) in degrees, +Inf without a gain crossover.
	PhaseMargin float64
	// PhaseCrossover ω_g where the phase crosses -180° (NaN when absent).
	PhaseCrossover float64
	// GainCrossover ω_p where |L| = 1 (NaN when absent).
	GainCrossover float64
}

// GainMarginDB returns the gain margin in dB. finite is false when the margin
// is infinite or zero, in which case callers must report it as unbounded.
func (m Margins) GainMarginDB() (db float64, finite bool) {
	if m.GainMargin == 0 || math.IsInf(m.GainMargin, 0) || math.IsNaN(m.GainMargin) {
		return math.Inf(1), false
	}
	return 20 * math.Log10(m.GainMargin), true
}

// HasGainCrossover reports whether |L| crosses unity inside the sweep.
func (m Margins) HasGainCrossover() bool { return !math.IsNaN(m.GainCrossover) }

// HasPhaseCrossover reports whether the phase crosses -180° inside the sweep.
func (m Margins) HasPhaseCrossover() bool { return !math.IsNaN(m.PhaseCrossover) }

const (
	bisectIters  = 80
	bisectRelTol = 1e-12
)

// ComputeMargins scans the sweep for sign changes of log|L| and of the phase
// around odd multiples of 180°, then refines each bracket by bisection on the
// exact response. With several crossings the smallest margin is reported.
func ComputeMargins(tf *lti.TransferFunction, w []float64) Margins {
	m := Margins{
		GainMargin:     math.Inf(1),
		PhaseMargin:    math.Inf(1),
		PhaseCrossover: math.NaN(),
		GainCrossover:  math.NaN(),
	}
	if len(w) < 2 {
		return m
	}

	_, mag, phase := response(tf, w)

	for i := 0; i+1 < len(w); i++ {
		a, b := math.Log(mag[i]), math.Log(mag[i+1])
		if math.IsNaN(a) || math.IsNaN(b) || (a > 0) == (b > 0) {
			continue
		}
		wc := bisect(w[i], w[i+1], func(x float64) float64 {
			return math.Log(cmplx.Abs(tf.FreqResponse(x)))
		})
		// the unwrapped branch keeps loops past -360° at a negative margin
		ph := phaseBetween(tf, wc, w[i], w[i+1], phase[i], phase[i+1])
		pm := 180 + ph*180/math.Pi
		if pm < m.PhaseMargin {
			m.PhaseMargin = pm
			m.GainCrossover = wc
		}
	}

	for i := 0; i+1 < len(w); i++ {
		if math.IsNaN(phase[i]) || math.IsNaN(phase[i+1]) {
			continue
		}
		ka := math.Floor((phase[i] + math.Pi) / (2 * math.Pi))
		kb := math.Floor((phase[i+1] + math.Pi) / (2 * math.Pi))
		if ka == kb {
			continue
		}
		boundary := 2*math.Pi*math.Max(ka, kb) - math.Pi
		lo, hi, plo, phi := w[i], w[i+1], phase[i], phase[i+1]
		wg := bisect(lo, hi, func(x float64) float64 {
			return phaseBetween(tf, x, lo, hi, plo, phi) - boundary
		})
		gm := 1 / cmplx.Abs(tf.FreqResponse(wg))
		if gm < m.GainMargin {
			m.GainMargin = gm
			m.PhaseCrossover = wg
		}
	}

	return m
}

// phaseBetween evaluates the phase at x on the branch interpolated (in log ω)
// between two unwrapped sweep samples.
func phaseBetween(tf *lti.TransferFunction, x, lo, hi, plo, phi float64) float64 {
	frac := math.Log(x/lo) / math.Log(hi/lo)
	ref := plo + frac*(phi-plo)
	return nearestBranch(cmplx.Phase(tf.FreqResponse(x)), ref)
}

// bisect locates a sign change of f inside [lo, hi] using geometric midpoints.
func bisect(lo, hi float64, f func(float64) float64) float64 {
	flo := f(lo)
	for i := 0; i < bisectIters && hi/lo-1 > bisectRelTol; i++ {
		mid := math.Sqrt(lo * hi)
		fm := f(mid)
		if math.IsNaN(fm) {
			break
		}
		if (fm > 0) == (flo > 0) {
			lo, flo = mid, fm
		} else {
			hi = mid
		}
	}
	return math.Sqrt(lo * hi)
}
