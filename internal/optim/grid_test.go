package optim

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"
)

func TestGridSearchFindsGridMinimum(t *testing.T) {
	g := NewGridSearch(3)
	f := func(x []float64) float64 {
		s := 0.0
		for _, v := range x {
			s += math.Log(v) * math.Log(v)
		}
		return s
	}
	res, err := g.Minimize(context.Background(), f, []Bound{{0.1, 10}, {0.1, 10}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Evaluations != 9 {
		t.Errorf("evaluations = %d, want 9", res.Evaluations)
	}
	for i, v := range res.X {
		if math.Abs(v-1) > 1e-12 {
			t.Errorf("x[%d] = %v, want 1", i, v)
		}
	}
	if res.Cost > 1e-20 {
		t.Errorf("cost = %v, want 0", res.Cost)
	}
}

func TestGridSearchLinearAxis(t *testing.T) {
	g := NewGridSearch(5)
	res, err := g.Minimize(context.Background(), sphere, []Bound{{-1, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if res.X[0] != 0 || res.Cost != 0 {
		t.Errorf("got x=%v cost=%v, want 0, 0", res.X, res.Cost)
	}
}

func TestGridSearchCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := NewGridSearch(4)
	g.Observer = func(p Progress) {
		if p.Generation == 2 {
			cancel()
		}
	}
	res, err := g.Minimize(ctx, sphere, []Bound{{-1, 1}, {-1, 1}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res.Evaluations != 8 {
		t.Errorf("evaluations = %d, want 8", res.Evaluations)
	}
	if res.X == nil {
		t.Error("expected best-so-far point")
	}
}

func TestLatinHypercubeStrata(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	bounds := []Bound{{0, 1}, {-10, 10}, {0.01, 100}}
	n := 45
	pop := latinHypercube(rng, n, bounds)

	for j, b := range bounds {
		col := make([]float64, n)
		for i := range pop {
			col[i] = (pop[i][j] - b.Lo) / b.Width()
		}
		sort.Float64s(col)
		for i, u := range col {
			lo, hi := float64(i)/float64(n), float64(i+1)/float64(n)
			if u < lo-1e-12 || u > hi+1e-12 {
				t.Errorf("dim %d: sample %d = %v outside stratum [%v, %v]", j, i, u, lo, hi)
			}
		}
	}
}

func TestTrialRespectsCrossover(t *testing.T) {
	cfg := DefaultDEConfig()
	cfg.Crossover = 0
	de := NewDifferentialEvolution(cfg)
	rng := rand.New(rand.NewSource(3))
	bounds := []Bound{{-100, 100}, {-100, 100}, {-100, 100}}
	pop := latinHypercube(rng, 10, bounds)

	dst := make([]float64, 3)
	for i := range pop {
		de.trial(rng, dst, pop, i, 0, 0.5, bounds)
		same := 0
		for j := range dst {
			if dst[j] == pop[i][j] {
				same++
			}
		}
		// with CR = 0 only the forced gene comes from the mutant
		if same != 2 {
			t.Errorf("member %d: %d genes unchanged, want 2", i, same)
		}
	}
}

func TestValidateBounds(t *testing.T) {
	tests := []struct {
		name   string
		bounds []Bound
		ok     bool
	}{
		{"valid", []Bound{{0, 1}}, true},
		{"empty", nil, false},
		{"equal", []Bound{{1, 1}}, false},
		{"inf", []Bound{{0, math.Inf(1)}}, false},
		{"nan", []Bound{{math.NaN(), 1}}, false},
	}
	for _, tt := range tests {
		err := validateBounds(tt.bounds)
		if (err == nil) != tt.ok {
			t.Errorf("%s: validateBounds() = %v", tt.name, err)
		}
	}
}
