package compensator

import (
	"errors"
	"fmt"

	"github.com/san-kum/leadlag/internal/lti"
)

// ErrInvalidCandidate marks candidates violating K, z, p > 0.
var ErrInvalidCandidate = errors.New("compensator: gain, zero and pole must be positive")

// Dim is the number of free parameters (K, z, p).
const Dim = 3

type Type string

const (
	Lead Type = "LEAD"
	Lag  Type = "LAG"
)

// Candidate is a point of the search space.
type Candidate struct {
	K float64 `json:"k"`
	Z float64 `json:"z"`
	P float64 `json:"p"`
}

// FromVector reads a candidate from an optimizer parameter vector.
func FromVector(x []float64) Candidate {
	var c Candidate
	if len(x) > 0 {
		c.K = x[0]
	}
	if len(x) > 1 {
		c.Z = x[1]
	}
	if len(x) > 2 {
		c.P = x[2]
	}
	return c
}

// Vector is the inverse of FromVector.
func (c Candidate) Vector() []float64 {
	return []float64{c.K, c.Z, c.P}
}

// Validate enforces a realizable, minimum-phase, strictly stable network.
func (c Candidate) Validate() error {
	if !(c.K > 0) || !(c.Z > 0) || !(c.P > 0) {
		return fmt.Errorf("%w: K=%g z=%g p=%g", ErrInvalidCandidate, c.K, c.Z, c.P)
	}
	return nil
}

// TransferFunction returns K(s+z)/(s+p).
func (c Candidate) TransferFunction() (*lti.TransferFunction, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return lti.New([]float64{c.K, c.K * c.Z}, []float64{1, c.P})
}

// OpenLoop cascades the network with the plant: L = C·G.
func (c Candidate) OpenLoop(plant *lti.TransferFunction) (*lti.TransferFunction, error) {
	ctf, err := c.TransferFunction()
	if err != nil {
		return nil, err
	}
	return ctf.Mul(plant), nil
}

// Compensator is the time-constant form K(Ts+1)/(αTs+1).
type Compensator struct {
	K     float64 `json:"K" yaml:"k"`
	T     float64 `json:"T" yaml:"t"`
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Type  Type    `json:"type" yaml:"type"`
}

// Compensator converts the pole/zero pair: T = 1/z, α = z/p and the DC gain
// K·z/p.
func (c Candidate) Compensator() Compensator {
	alpha := c.Z / c.P
	return Compensator{
		K:     c.K * alpha,
		T:     1 / c.Z,
		Alpha: alpha,
		Type:  Classify(alpha),
	}
}

// Classify returns LEAD for α < 1. α = 1 is a pure gain and reported as LAG.
func Classify(alpha float64) Type {
	if alpha < 1 {
		return Lead
	}
	return Lag
}

// TransferFunction rebuilds K(Ts+1)/(αTs+1).
func (c Compensator) TransferFunction() (*lti.TransferFunction, error) {
	return lti.New([]float64{c.K * c.T, c.K}, []float64{c.Alpha * c.T, 1})
}

func (c Compensator) String() string {
	return fmt.Sprintf("%s K=%.4g T=%.4g alpha=%.4g", c.Type, c.K, c.T, c.Alpha)
}
