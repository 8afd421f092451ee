package lti

import "math"

// polyMul convolves two coefficient slices.
func polyMul(a, b []float64) []float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// polyAdd sums two polynomials aligned on their constant terms.
func polyAdd(a, b []float64) []float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]float64, n)
	for i := range a {
		out[n-len(a)+i] += a[i]
	}
	for i := range b {
		out[n-len(b)+i] += b[i]
	}
	return out
}

// polyEval evaluates p at s with Horner's scheme.
func polyEval(p []float64, s complex128) complex128 {
	var acc complex128
	for _, c := range p {
		acc = acc*s + complex(c, 0)
	}
	return acc
}

// trimLeading drops leading zero coefficients, keeping at least one entry.
func trimLeading(p []float64) []float64 {
	i := 0
	for i < len(p)-1 && p[i] == 0 {
		i++
	}
	out := make([]float64, len(p)-i)
	copy(out, p[i:])
	return out
}

// trailingZeros counts roots at the origin.
func trailingZeros(p []float64) int {
	n := 0
	for i := len(p) - 1; i >= 0 && p[i] == 0; i-- {
		n++
	}
	return n
}

func allZero(p []float64) bool {
	for _, c := range p {
		if c != 0 {
			return false
		}
	}
	return true
}

func allFinite(p []float64) bool {
	for _, c := range p {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
