package lti

import (
	"errors"
	"math"
	"math/cmplx"
	"sort"
	"testing"
)

func TestNew_InvalidModel(t *testing.T) {
	tests := []struct {
		name string
		num  []float64
		den  []float64
	}{
		{"empty denominator", []float64{1}, nil},
		{"zero denominator", []float64{1}, []float64{0, 0}},
		{"empty numerator", nil, []float64{1, 1}},
		{"zero numerator", []float64{0}, []float64{1, 1}},
		{"NaN coefficient", []float64{1}, []float64{1, math.NaN()}},
		{"Inf coefficient", []float64{math.Inf(1)}, []float64{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.num, tt.den)
			if !errors.Is(err, ErrInvalidModel) {
				t.Errorf("New(%v, %v) error = %v, want ErrInvalidModel", tt.num, tt.den, err)
			}
		})
	}
}

func TestNew_TrimsLeadingZeros(t *testing.T) {
	tf := MustNew([]float64{0, 0, 2}, []float64{0, 1, 3})
	if got := tf.Num(); len(got) != 1 || got[0] != 2 {
		t.Errorf("Num() = %v, want [2]", got)
	}
	if got := tf.Den(); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("Den() = %v, want [1 3]", got)
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	tf := MustNew([]float64{1}, []float64{1, 1})
	den := tf.Den()
	den[0] = 42
	if tf.Den()[0] != 1 {
		t.Error("mutating Den() result changed the model")
	}
}

func TestFreqResponse_FirstOrder(t *testing.T) {
	tf := MustNew([]float64{1}, []float64{1, 1})
	h := tf.FreqResponse(1)
	want := complex(0.5, -0.5)
	if cmplx.Abs(h-want) > 1e-12 {
		t.Errorf("H(j1) = %v, want %v", h, want)
	}
}

func TestFreqResponse_SingularPoint(t *testing.T) {
	// pole at the origin evaluated exactly at s = 0
	tf := MustNew([]float64{1}, []float64{1, 0})
	h := tf.Eval(0)
	if !cmplx.IsInf(h) && !cmplx.IsNaN(h) {
		t.Errorf("Eval(0) = %v, want Inf or NaN", h)
	}
}

func TestMul(t *testing.T) {
	a := MustNew([]float64{1, 2}, []float64{1, 3})
	b := MustNew([]float64{2}, []float64{1, 0, 1})
	got := a.Mul(b)

	wantNum := []float64{2, 4}
	wantDen := []float64{1, 3, 1, 3}
	if !equal(got.Num(), wantNum) || !equal(got.Den(), wantDen) {
		t.Errorf("Mul = %v, want (%v)/(%v)", got, wantNum, wantDen)
	}

	s := complex(0.3, 1.7)
	if cmplx.Abs(got.Eval(s)-a.Eval(s)*b.Eval(s)) > 1e-12 {
		t.Error("Mul does not match pointwise product")
	}
}

func TestFeedback(t *testing.T) {
	l := MustNew([]float64{2}, []float64{1, 1, 0})
	cl, err := l.Feedback()
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if !equal(cl.Den(), []float64{1, 1, 2}) {
		t.Errorf("closed-loop den = %v, want [1 1 2]", cl.Den())
	}

	s := complex(0.1, 2.0)
	want := l.Eval(s) / (1 + l.Eval(s))
	if cmplx.Abs(cl.Eval(s)-want) > 1e-12 {
		t.Errorf("T(s) = %v, want %v", cl.Eval(s), want)
	}
}

func TestFeedback_UnitDCGain(t *testing.T) {
	// L(0) = 1 gives T(0) = 1/2 exactly
	l := MustNew([]float64{2}, []float64{1, 2})
	cl, err := l.Feedback()
	if err != nil {
		t.Fatal(err)
	}
	if got := cl.StaticGain(); got != 0.5 {
		t.Errorf("T(0) = %v, want 0.5", got)
	}
	if got := l.StaticGain() / (1 + l.StaticGain()); got != cl.StaticGain() {
		t.Errorf("L(0)/(1+L(0)) = %v, T(0) = %v", got, cl.StaticGain())
	}
}

func TestFeedback_Vanishing(t *testing.T) {
	l := MustNew([]float64{-1}, []float64{1})
	if _, err := l.Feedback(); !errors.Is(err, ErrInvalidModel) {
		t.Errorf("Feedback() error = %v, want ErrInvalidModel", err)
	}
}

func TestStaticGain(t *testing.T) {
	tests := []struct {
		name string
		num  []float64
		den  []float64
		want float64
	}{
		{"first order", []float64{3}, []float64{2, 1}, 3},
		{"type 1", []float64{1}, []float64{1, 1, 0}, math.Inf(1)},
		{"negative type 1", []float64{-1}, []float64{1, 1, 0}, math.Inf(-1)},
		{"differentiator", []float64{1, 0}, []float64{1, 1}, 0},
		{"cancelled origin", []float64{2, 0}, []float64{1, 4, 0}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MustNew(tt.num, tt.den).StaticGain()
			if got != tt.want {
				t.Errorf("StaticGain() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestType(t *testing.T) {
	if got := MustNew([]float64{1}, []float64{1, 1, 0}).Type(); got != 1 {
		t.Errorf("Type() = %d, want 1", got)
	}
	if got := MustNew([]float64{1}, []float64{1, 1}).Type(); got != 0 {
		t.Errorf("Type() = %d, want 0", got)
	}
}

func TestPoles(t *testing.T) {
	// (s+1)(s+2)(s+3)
	tf := MustNew([]float64{1}, []float64{1, 6, 11, 6})
	poles, err := tf.Poles()
	if err != nil {
		t.Fatal(err)
	}
	re := make([]float64, len(poles))
	for i, p := range poles {
		if math.Abs(imag(p)) > 1e-9 {
			t.Errorf("pole %v should be real", p)
		}
		re[i] = real(p)
	}
	sort.Float64s(re)
	want := []float64{-3, -2, -1}
	for i := range want {
		if math.Abs(re[i]-want[i]) > 1e-9 {
			t.Errorf("pole[%d] = %v, want %v", i, re[i], want[i])
		}
	}

	static := MustNew([]float64{1}, []float64{5})
	if p, _ := static.Poles(); p != nil {
		t.Errorf("static gain poles = %v, want none", p)
	}
}

func TestString(t *testing.T) {
	tf := MustNew([]float64{2, 1}, []float64{1, 0, -3})
	want := "(2s + 1) / (s^2 - 3)"
	if got := tf.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func equal(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
