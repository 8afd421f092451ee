package integrators

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/leadlag/internal/sim"
)

// Exact advances linear systems with the zero-order-hold discretization
//
//	x[k+1] = Φ x[k] + Γ u[k],   [Φ Γ; 0 1] = exp([A B; 0 0]·dt)
//
// which is exact for piecewise-constant inputs. Φ and Γ are cached for the
// last (A, dt) pair. Non-linear systems fall back to RK4.
type Exact struct {
	a     *mat.Dense
	dt    float64
	phi   *mat.Dense
	gamma []float64

	fallback *RK4
}

func NewExact() *Exact {
	return &Exact{fallback: NewRK4()}
}

func (e *Exact) Step(dyn sim.Dynamics, x sim.State, u sim.Control, t, dt float64) sim.State {
	lin, ok := dyn.(sim.Linear)
	if !ok {
		return e.fallback.Step(dyn, x, u, t, dt)
	}
	n := len(x)
	if n == 0 {
		return sim.State{}
	}

	a, b := lin.Matrices()
	if a != e.a || dt != e.dt {
		e.discretize(a, b, dt)
	}

	in := 0.0
	if len(u) > 0 {
		in = u[0]
	}
	next := make(sim.State, n)
	for i := 0; i < n; i++ {
		v := e.gamma[i] * in
		for j := 0; j < n; j++ {
			v += e.phi.At(i, j) * x[j]
		}
		next[i] = v
	}
	return next
}

func (e *Exact) discretize(a *mat.Dense, b []float64, dt float64) {
	n, _ := a.Dims()
	aug := mat.NewDense(n+1, n+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			aug.Set(i, j, a.At(i, j)*dt)
		}
		aug.Set(i, n, b[i]*dt)
	}

	var m mat.Dense
	m.Exp(aug)

	e.phi = mat.NewDense(n, n, nil)
	e.phi.Copy(m.Slice(0, n, 0, n))
	e.gamma = make([]float64, n)
	for i := 0; i < n; i++ {
		e.gamma[i] = m.At(i, n)
	}
	e.a, e.dt = a, dt
}

// New returns the integrator registered under name: "exact", "rk4", "rk45"
// or "euler".
func New(name string) (sim.Integrator, bool) {
	switch name {
	case "", "exact":
		return NewExact(), true
	case "rk4":
		return NewRK4(), true
	case "rk45":
		return NewRK45(), true
	case "euler":
		return NewEuler(), true
	}
	return nil, false
}

// Names lists the registered integrators.
func Names() []string {
	return []string{"exact", "rk4", "rk45", "euler"}
}
