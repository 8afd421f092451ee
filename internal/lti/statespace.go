package lti

import "gonum.org/v1/gonum/mat"

// StateSpace is a single-input single-output realization
//
//	x' = A x + B u
//	y  = C x + D u
//
// A is nil for static (order zero) systems.
type StateSpace struct {
	A *mat.Dense
	B []float64
	C []float64
	D float64
}

// Dim is the number of states.
func (ss *StateSpace) Dim() int { return len(ss.B) }

// StateSpace returns the controllable canonical form of tf: the first row of
// A holds the negated monic denominator, B is the first unit vector and D
// carries the direct feedthrough of biproper systems.
func (tf *TransferFunction) StateSpace() (*StateSpace, error) {
	if !tf.IsProper() {
		return nil, ErrImproper
	}
	n := tf.Order()
	a0 := tf.den[0]

	b := make([]float64, n+1)
	for i, c := range tf.num {
		b[n+1-len(tf.num)+i] = c / a0
	}

	ss := &StateSpace{D: b[0]}
	if n == 0 {
		return ss, nil
	}

	ss.A = mat.NewDense(n, n, nil)
	ss.B = make([]float64, n)
	ss.C = make([]float64, n)
	ss.B[0] = 1
	for j := 0; j < n; j++ {
		a := tf.den[j+1] / a0
		ss.A.Set(0, j, -a)
		ss.C[j] = b[j+1] - a*ss.D
	}
	for i := 1; i < n; i++ {
		ss.A.Set(i, i-1, 1)
	}
	return ss, nil
}
