package compensator

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/san-kum/leadlag/internal/lti"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		c     Candidate
		valid bool
	}{
		{"all positive", Candidate{K: 1, Z: 2, P: 3}, true},
		{"zero gain", Candidate{K: 0, Z: 2, P: 3}, false},
		{"negative zero", Candidate{K: 1, Z: -2, P: 3}, false},
		{"zero pole", Candidate{K: 1, Z: 2, P: 0}, false},
		{"NaN gain", Candidate{K: math.NaN(), Z: 2, P: 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidCandidate) {
				t.Errorf("Validate() = %v, want ErrInvalidCandidate", err)
			}
		})
	}
}

func TestTransferFunction(t *testing.T) {
	c := Candidate{K: 2, Z: 3, P: 5}
	tf, err := c.TransferFunction()
	if err != nil {
		t.Fatal(err)
	}
	s := complex(0.4, 1.3)
	want := 2 * (s + 3) / (s + 5)
	if cmplx.Abs(tf.Eval(s)-want) > 1e-12 {
		t.Errorf("C(s) = %v, want %v", tf.Eval(s), want)
	}

	if _, err := (Candidate{K: -1, Z: 1, P: 1}).TransferFunction(); err == nil {
		t.Error("expected error for invalid candidate")
	}
}

func TestOpenLoop(t *testing.T) {
	plant := lti.MustNew([]float64{1}, []float64{1, 1})
	c := Candidate{K: 4, Z: 1, P: 10}
	l, err := c.OpenLoop(plant)
	if err != nil {
		t.Fatal(err)
	}
	ctf, _ := c.TransferFunction()
	s := complex(0, 2.5)
	if cmplx.Abs(l.Eval(s)-ctf.Eval(s)*plant.Eval(s)) > 1e-12 {
		t.Error("open loop is not C·G")
	}
}

func TestCompensatorConversion(t *testing.T) {
	c := Candidate{K: 10, Z: 2, P: 8}
	comp := c.Compensator()

	if comp.T != 0.5 {
		t.Errorf("T = %v, want 0.5", comp.T)
	}
	if comp.Alpha != 0.25 {
		t.Errorf("alpha = %v, want 0.25", comp.Alpha)
	}
	if comp.K != 2.5 {
		t.Errorf("K = %v, want 2.5", comp.K)
	}
	if comp.Type != Lead {
		t.Errorf("type = %v, want LEAD", comp.Type)
	}

	// both forms describe the same network
	a, _ := c.TransferFunction()
	b, err := comp.TransferFunction()
	if err != nil {
		t.Fatal(err)
	}
	for _, w := range []float64{0.01, 1, 100} {
		if cmplx.Abs(a.FreqResponse(w)-b.FreqResponse(w)) > 1e-9 {
			t.Errorf("forms disagree at w=%v: %v vs %v", w, a.FreqResponse(w), b.FreqResponse(w))
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		alpha float64
		want  Type
	}{
		{0.1, Lead},
		{0.999999, Lead},
		{1, Lag},
		{1.5, Lag},
		{40, Lag},
	}
	for _, tt := range tests {
		if got := Classify(tt.alpha); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.alpha, got, tt.want)
		}
	}
}

func TestVectorRoundTrip(t *testing.T) {
	c := Candidate{K: 1.5, Z: 0.2, P: 7}
	if got := FromVector(c.Vector()); got != c {
		t.Errorf("FromVector(Vector()) = %+v, want %+v", got, c)
	}
	if got := FromVector([]float64{3}); got.K != 3 || got.Z != 0 || got.P != 0 {
		t.Errorf("FromVector(short) = %+v", got)
	}
}
