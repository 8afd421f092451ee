package lti

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// TransferFunction is an immutable SISO model num(s)/den(s).
type TransferFunction struct {
	num []float64
	den []float64
}

// New validates raw coefficients and returns a model with leading zeros trimmed.
func New(num, den []float64) (*TransferFunction, error) {
	switch {
	case len(den) == 0:
		return nil, &ModelError{Field: "denominator", Coeffs: den, Reason: "is empty"}
	case allZero(den):
		return nil, &ModelError{Field: "denominator", Coeffs: den, Reason: "is identically zero"}
	case !allFinite(den):
		return nil, &ModelError{Field: "denominator", Coeffs: den, Reason: "has non-finite coefficients"}
	case len(num) == 0:
		return nil, &ModelError{Field: "numerator", Coeffs: num, Reason: "is empty"}
	case allZero(num):
		return nil, &ModelError{Field: "numerator", Coeffs: num, Reason: "is identically zero"}
	case !allFinite(num):
		return nil, &ModelError{Field: "numerator", Coeffs: num, Reason: "has non-finite coefficients"}
	}
	return &TransferFunction{num: trimLeading(num), den: trimLeading(den)}, nil
}

// MustNew is New for coefficients known to be valid; it panics otherwise.
func MustNew(num, den []float64) *TransferFunction {
	tf, err := New(num, den)
	if err != nil {
		panic(err)
	}
	return tf
}

// Num returns a copy of the numerator coefficients.
func (tf *TransferFunction) Num() []float64 {
	out := make([]float64, len(tf.num))
	copy(out, tf.num)
	return out
}

// Den returns a copy of the denominator coefficients.
func (tf *TransferFunction) Den() []float64 {
	out := make([]float64, len(tf.den))
	copy(out, tf.den)
	return out
}

// Order is the degree of the denominator.
func (tf *TransferFunction) Order() int { return len(tf.den) - 1 }

// IsProper reports whether deg(num) <= deg(den).
func (tf *TransferFunction) IsProper() bool { return len(tf.num) <= len(tf.den) }

// Eval returns num(s)/den(s). Singular points produce Inf/NaN, never a panic.
func (tf *TransferFunction) Eval(s complex128) complex128 {
	return polyEval(tf.num, s) / polyEval(tf.den, s)
}

// FreqResponse returns H(jω).
func (tf *TransferFunction) FreqResponse(w float64) complex128 {
	return tf.Eval(complex(0, w))
}

// Mul cascades two systems: (n1·n2)/(d1·d2).
func (tf *TransferFunction) Mul(other *TransferFunction) *TransferFunction {
	return &TransferFunction{
		num: trimLeading(polyMul(tf.num, other.num)),
		den: trimLeading(polyMul(tf.den, other.den)),
	}
}

// Feedback closes a unity negative feedback loop around tf, giving
// num/(den+num).
func (tf *TransferFunction) Feedback() (*TransferFunction, error) {
	den := trimLeading(polyAdd(tf.den, tf.num))
	if allZero(den) || !allFinite(den) {
		return nil, &ModelError{Field: "closed-loop denominator", Coeffs: den, Reason: "vanishes"}
	}
	return &TransferFunction{num: tf.Num(), den: den}, nil
}

// StaticGain is the signed limit of H(s) as s→0, cancelling common roots at
// the origin first. Integrating systems return ±Inf.
func (tf *TransferFunction) StaticGain() float64 {
	nz := trailingZeros(tf.num)
	dz := trailingZeros(tf.den)
	n := tf.num[len(tf.num)-1-min(nz, len(tf.num)-1)]
	d := tf.den[len(tf.den)-1-min(dz, len(tf.den)-1)]
	switch {
	case nz > dz:
		return 0
	case dz > nz:
		if n*d < 0 {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	return n / d
}

// DCGain is |StaticGain()|.
func (tf *TransferFunction) DCGain() float64 {
	return math.Abs(tf.StaticGain())
}

// Type is the number of net integrators (poles at the origin minus zeros there).
func (tf *TransferFunction) Type() int {
	return trailingZeros(tf.den) - trailingZeros(tf.num)
}

// Poles returns the roots of the denominator.
func (tf *TransferFunction) Poles() ([]complex128, error) {
	return roots(tf.den)
}

// Zeros returns the roots of the numerator.
func (tf *TransferFunction) Zeros() ([]complex128, error) {
	return roots(tf.num)
}

// roots computes polynomial roots as eigenvalues of the companion matrix.
func roots(p []float64) ([]complex128, error) {
	p = trimLeading(p)
	n := len(p) - 1
	if n < 1 {
		return nil, nil
	}
	c := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		c.Set(0, j, -p[j+1]/p[0])
	}
	for i := 1; i < n; i++ {
		c.Set(i, i-1, 1)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(c, mat.EigenNone); !ok {
		return nil, ErrNoRoots
	}
	return eig.Values(nil), nil
}

func (tf *TransferFunction) String() string {
	return fmt.Sprintf("(%s) / (%s)", polyString(tf.num), polyString(tf.den))
}

func polyString(p []float64) string {
	var sb strings.Builder
	deg := len(p) - 1
	for i, c := range p {
		if c == 0 && len(p) > 1 {
			continue
		}
		pow := deg - i
		if sb.Len() > 0 {
			if c < 0 {
				sb.WriteString(" - ")
			} else {
				sb.WriteString(" + ")
			}
			c = math.Abs(c)
		}
		if c != 1 || pow == 0 {
			sb.WriteString(fmt.Sprintf("%g", c))
		}
		switch {
		case pow == 1:
			sb.WriteString("s")
		case pow > 1:
			sb.WriteString(fmt.Sprintf("s^%d", pow))
		}
	}
	return sb.String()
}
