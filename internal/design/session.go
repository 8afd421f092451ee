package design

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/san-kum/leadlag/internal/compensator"
	"github.com/san-kum/leadlag/internal/freqresp"
	"github.com/san-kum/leadlag/internal/lti"
	"github.com/san-kum/leadlag/internal/objective"
	"github.com/san-kum/leadlag/internal/optim"
)

var (
	// ErrNotComputed is returned by response queries before Optimize succeeded.
	ErrNotComputed = errors.New("design: optimization has not been run")

	// ErrUnknownStrategy indicates an optimizer name other than "de" or "grid".
	ErrUnknownStrategy = errors.New("design: unknown optimizer strategy")

	// ErrNoCandidate indicates the search stopped before evaluating anything.
	ErrNoCandidate = errors.New("design: search produced no candidate")
)

// Result is the outcome of one optimization run.
type Result struct {
	Candidate   compensator.Candidate
	Compensator compensator.Compensator
	Controller  *lti.TransferFunction
	OpenLoop    *lti.TransferFunction
	ClosedLoop  *lti.TransferFunction
	Margins     freqresp.Margins
	Evaluation  objective.Evaluation
	Search      optim.Result

	// Invalid and Faults count candidates the objective rejected or could
	// not evaluate during the search.
	Invalid int64
	Faults  int64

	Duration time.Duration
	// Interrupted is set when the search was cancelled and Candidate is the
	// best point found before cancellation.
	Interrupted bool
}

// Session owns one plant and performance spec.
type Session struct {
	plant *lti.TransferFunction
	spec  objective.Spec
	opts  Options
	obj   *objective.Objective
	log   logr.Logger

	runMu  sync.Mutex
	mu     sync.RWMutex
	result *Result
}

// New validates the plant and spec before any search is started. Malformed
// coefficients fail with lti.ErrInvalidModel.
func New(num, den []float64, spec objective.Spec, opts Options) (*Session, error) {
	plant, err := lti.New(num, den)
	if err != nil {
		return nil, fmt.Errorf("design: plant: %w", err)
	}
	return NewWithPlant(plant, spec, opts)
}

func NewWithPlant(plant *lti.TransferFunction, spec objective.Spec, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	if opts.Strategy != StrategyDE && opts.Strategy != StrategyGrid {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, opts.Strategy)
	}
	if len(opts.Bounds) != compensator.Dim {
		return nil, fmt.Errorf("design: need %d bounds, got %d: %w", compensator.Dim, len(opts.Bounds), optim.ErrInvalidBounds)
	}

	objOpts := opts.Objective
	objOpts.Frequencies = opts.MarginSweep.Frequencies()
	obj, err := objective.New(plant, spec, objOpts)
	if err != nil {
		return nil, err
	}

	return &Session{
		plant: plant,
		spec:  spec,
		opts:  opts,
		obj:   obj,
		log:   opts.Logger,
	}, nil
}

func (s *Session) Plant() *lti.TransferFunction { return s.plant }
func (s *Session) Spec() objective.Spec         { return s.spec }

// Result returns the last completed optimization.
func (s *Session) Result() (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return nil, ErrNotComputed
	}
	return s.result, nil
}

func (s *Session) minimizer() optim.Minimizer {
	if s.opts.Strategy == StrategyGrid {
		g := optim.NewGridSearch(s.opts.GridPoints)
		g.Log = s.log
		g.Observer = s.opts.Observer
		return g
	}
	return optim.NewDifferentialEvolution(s.opts.DE,
		optim.WithLogger(s.log),
		optim.WithObserver(s.opts.Observer))
}

// Optimize searches for the best compensator. If ctx is cancelled after at
// least one candidate was evaluated, the best one so far is finalized and
// returned together with the context error.
func (s *Session) Optimize(ctx context.Context) (*Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()
	var invalid, faults atomic.Int64
	cost := func(x []float64) float64 {
		ev := s.obj.Evaluate(compensator.FromVector(x))
		switch ev.Status {
		case objective.StatusInvalid:
			invalid.Add(1)
		case objective.StatusFault:
			faults.Add(1)
		}
		return ev.Cost
	}

	s.log.V(1).Info("starting search",
		"plant", s.plant.String(),
		"targetPM", s.spec.TargetPM,
		"strategy", s.opts.Strategy)

	search, searchErr := s.minimizer().Minimize(ctx, cost, s.opts.Bounds)
	if searchErr != nil && (search.X == nil || ctx.Err() == nil) {
		if search.X == nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoCandidate, searchErr)
		}
		return nil, fmt.Errorf("design: search: %w", searchErr)
	}

	res, err := s.finalize(search)
	if err != nil {
		return nil, err
	}
	res.Invalid = invalid.Load()
	res.Faults = faults.Load()
	res.Duration = time.Since(start)
	res.Interrupted = searchErr != nil

	s.mu.Lock()
	s.result = res
	s.mu.Unlock()

	s.log.Info("compensator synthesized",
		"type", res.Compensator.Type,
		"K", res.Compensator.K,
		"T", res.Compensator.T,
		"alpha", res.Compensator.Alpha,
		"pm", res.Margins.PhaseMargin,
		"cost", res.Evaluation.Cost,
		"interrupted", res.Interrupted,
		"duration", res.Duration)
	return res, searchErr
}

func (s *Session) finalize(search optim.Result) (*Result, error) {
	c := compensator.FromVector(search.X)
	ctrl, err := c.TransferFunction()
	if err != nil {
		return nil, fmt.Errorf("design: best candidate: %w", err)
	}
	open := ctrl.Mul(s.plant)
	closed, err := open.Feedback()
	if err != nil {
		return nil, fmt.Errorf("design: closed loop: %w", err)
	}
	return &Result{
		Candidate:   c,
		Compensator: c.Compensator(),
		Controller:  ctrl,
		OpenLoop:    open,
		ClosedLoop:  closed,
		Margins:     freqresp.ComputeMargins(open, s.opts.MarginSweep.Frequencies()),
		Evaluation:  s.obj.Evaluate(c),
		Search:      search,
	}, nil
}
