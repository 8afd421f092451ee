package sim

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/leadlag/internal/lti"
)

// Linear is a single-input system dx/dt = A x + B u whose matrices are
// available to exact discretization.
type Linear interface {
	Dynamics
	Matrices() (a *mat.Dense, b []float64)
}

// LinearSystem simulates a state-space realization with a scalar input.
type LinearSystem struct {
	ss *lti.StateSpace
}

func NewLinearSystem(ss *lti.StateSpace) *LinearSystem {
	return &LinearSystem{ss: ss}
}

// FromTransferFunction realizes tf in controllable canonical form.
func FromTransferFunction(tf *lti.TransferFunction) (*LinearSystem, error) {
	ss, err := tf.StateSpace()
	if err != nil {
		return nil, err
	}
	return NewLinearSystem(ss), nil
}

func (l *LinearSystem) StateDim() int   { return l.ss.Dim() }
func (l *LinearSystem) ControlDim() int { return 1 }

func (l *LinearSystem) Matrices() (*mat.Dense, []float64) {
	return l.ss.A, l.ss.B
}

func (l *LinearSystem) Derivative(x State, u Control, t float64) State {
	n := l.ss.Dim()
	dx := make(State, n)
	if n == 0 {
		return dx
	}
	in := input(u)
	for i := 0; i < n; i++ {
		v := l.ss.B[i] * in
		for j := 0; j < n; j++ {
			v += l.ss.A.At(i, j) * x[j]
		}
		dx[i] = v
	}
	return dx
}

// Output is C x + D u.
func (l *LinearSystem) Output(x State, u Control) float64 {
	y := l.ss.D * input(u)
	for i, c := range l.ss.C {
		y += c * x[i]
	}
	return y
}

func input(u Control) float64 {
	if len(u) == 0 {
		return 0
	}
	return u[0]
}

// StepInput applies a constant Amplitude from t = 0.
type StepInput struct {
	Amplitude float64
}

func (s StepInput) Compute(x State, t float64) Control {
	return Control{s.Amplitude}
}
