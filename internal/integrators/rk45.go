package integrators

import (
	"errors"
	"math"

	"github.com/san-kum/leadlag/internal/sim"
)

// ErrStepRejected is returned by StepAdaptive when the local error exceeds
// the tolerance; the returned step size is the one to retry with.
var ErrStepRejected = errors.New("integrators: step rejected")

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 is the Dormand-Prince 5(4) pair. Step covers dt with as many
// error-controlled substeps as Tol requires.
type RK45 struct {
	Tol      float64
	MaxSteps int

	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		Tol:      1e-8,
		MaxSteps: 10000,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) Step(dyn sim.Dynamics, x sim.State, u sim.Control, t, dt float64) sim.State {
	end := t + dt
	h := dt
	for i := 0; i < r.MaxSteps && t < end; i++ {
		h = math.Min(h, end-t)
		next, hNew, err := r.StepAdaptive(dyn, x, u, t, h, r.Tol)
		if err != nil {
			// rejected: retry from the same point with the reduced step
			h = hNew
			continue
		}
		x = next
		t += h
		h = hNew
		if end-t <= 1e-12*math.Abs(end) {
			break
		}
	}
	return x
}

func (r *RK45) StepAdaptive(dyn sim.Dynamics, x sim.State, u sim.Control, t, dt, tol float64) (sim.State, float64, error) {
	n := len(x)

	k1 := dyn.Derivative(x, u, t)

	x2 := make(sim.State, n)
	for i := 0; i < n; i++ {
		x2[i] = x[i] + dt*b21*k1[i]
	}
	k2 := dyn.Derivative(x2, u, t+a2*dt)

	x3 := make(sim.State, n)
	for i := 0; i < n; i++ {
		x3[i] = x[i] + dt*(b31*k1[i]+b32*k2[i])
	}
	k3 := dyn.Derivative(x3, u, t+a3*dt)

	x4 := make(sim.State, n)
	for i := 0; i < n; i++ {
		x4[i] = x[i] + dt*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4 := dyn.Derivative(x4, u, t+a4*dt)

	x5 := make(sim.State, n)
	for i := 0; i < n; i++ {
		x5[i] = x[i] + dt*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5 := dyn.Derivative(x5, u, t+a5*dt)

	x6 := make(sim.State, n)
	for i := 0; i < n; i++ {
		x6[i] = x[i] + dt*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6 := dyn.Derivative(x6, u, t+dt)

	xNew := make(sim.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}

	k7 := dyn.Derivative(xNew, u, t+dt)

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := math.Abs(x[i]) + math.Abs(dt*k1[i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}

	ratio := errMax / tol
	if ratio > 1 {
		return x, dt * math.Max(r.minScale, r.safety*math.Pow(ratio, -0.25)), ErrStepRejected
	}
	if ratio == 0 {
		return xNew, dt * r.maxScale, nil
	}
	return xNew, dt * math.Min(r.maxScale, r.safety*math.Pow(ratio, -0.2)), nil
}
