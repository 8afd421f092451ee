package integrators

import "github.com/san-kum/leadlag/internal/sim"

// Euler is the first-order explicit method. It is kept for comparison runs.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn sim.Dynamics, x sim.State, u sim.Control, t, dt float64) sim.State {
	dx := dyn.Derivative(x, u, t)
	next := make(sim.State, len(x))
	for i := range x {
		next[i] = x[i] + dt*dx[i]
	}
	return next
}

// RK4 is the classical fourth-order Runge-Kutta method. Stage buffers are
// reused between steps, so an RK4 must not be shared between goroutines.
type RK4 struct {
	k1, k2, k3, k4 sim.State
	scratch        sim.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(sim.State, n)
		r.k2 = make(sim.State, n)
		r.k3 = make(sim.State, n)
		r.k4 = make(sim.State, n)
		r.scratch = make(sim.State, n)
	}
}

func (r *RK4) Step(dyn sim.Dynamics, x sim.State, u sim.Control, t, dt float64) sim.State {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k1, dyn.Derivative(x, u, t))
	r.stage(x, r.k1, dt/2)
	copy(r.k2, dyn.Derivative(r.scratch, u, t+dt/2))
	r.stage(x, r.k2, dt/2)
	copy(r.k3, dyn.Derivative(r.scratch, u, t+dt/2))
	r.stage(x, r.k3, dt)
	copy(r.k4, dyn.Derivative(r.scratch, u, t+dt))

	next := make(sim.State, n)
	dt6 := dt / 6
	for i := 0; i < n; i++ {
		next[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	return next
}

func (r *RK4) stage(x, k sim.State, h float64) {
	for i := range x {
		r.scratch[i] = x[i] + h*k[i]
	}
}
