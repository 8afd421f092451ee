package freqresp

import (
	"math"
	"math/cmplx"

	"github.com/san-kum/leadlag/internal/lti"
)

// Series is a Bode dataset: magnitude in dB and phase in degrees per
// frequency (rad/s).
type Series struct {
	Frequency []float64 `json:"frequency"`
	Magnitude []float64 `json:"magnitude"`
	Phase     []float64 `json:"phase"`
}

// Len is the number of samples.
func (s Series) Len() int { return len(s.Frequency) }

// NyquistSeries holds the rectangular form of the response.
type NyquistSeries struct {
	Real []float64 `json:"real"`
	Imag []float64 `json:"imag"`
}

// Bode samples tf along w.
func Bode(tf *lti.TransferFunction, w []float64) Series {
	s := Series{
		Frequency: make([]float64, len(w)),
		Magnitude: make([]float64, len(w)),
		Phase:     make([]float64, len(w)),
	}
	copy(s.Frequency, w)

	_, mag, phase := response(tf, w)
	for i := range w {
		s.Magnitude[i] = 20 * math.Log10(mag[i])
		s.Phase[i] = phase[i] * 180 / math.Pi
	}
	return s
}

// Nyquist samples tf along w and converts each polar sample to rectangular
// form.
func Nyquist(tf *lti.TransferFunction, w []float64) NyquistSeries {
	n := NyquistSeries{
		Real: make([]float64, len(w)),
		Imag: make([]float64, len(w)),
	}
	_, mag, phase := response(tf, w)
	for i := range w {
		z := cmplx.Rect(mag[i], phase[i])
		n.Real[i] = real(z)
		n.Imag[i] = imag(z)
	}
	return n
}

// response evaluates tf along w, returning the complex samples, their
// magnitude and their phase in radians unwrapped along the sweep.
func response(tf *lti.TransferFunction, w []float64) ([]complex128, []float64, []float64) {
	h := make([]complex128, len(w))
	mag := make([]float64, len(w))
	phase := make([]float64, len(w))

	ref := asymptoticPhase(tf)
	for i, wi := range w {
		h[i] = tf.FreqResponse(wi)
		mag[i] = cmplx.Abs(h[i])
		p := cmplx.Phase(h[i])
		if math.IsNaN(p) || cmplx.IsInf(h[i]) {
			phase[i] = math.NaN()
			continue
		}
		phase[i] = nearestBranch(p, ref)
		ref = phase[i]
	}
	return h, mag, phase
}

// asymptoticPhase is the phase of tf as ω→0: -90° per net integrator and an
// extra -180° for a negative low-frequency gain.
func asymptoticPhase(tf *lti.TransferFunction) float64 {
	n, nz := lowestNonZero(tf.Num())
	d, dz := lowestNonZero(tf.Den())
	ph := -float64(dz-nz) * math.Pi / 2
	if n/d < 0 {
		ph -= math.Pi
	}
	return ph
}

func lowestNonZero(p []float64) (float64, int) {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] != 0 {
			return p[i], len(p) - 1 - i
		}
	}
	return 0, 0
}

// nearestBranch shifts theta by a multiple of 2π to lie closest to ref.
func nearestBranch(theta, ref float64) float64 {
	return theta + 2*math.Pi*math.Round((ref-theta)/(2*math.Pi))
}
