// Package report shapes a finished design session into the JSON document
// returned by the HTTP API and persisted with saved runs.
package report

import (
	"context"
	"time"

	"github.com/san-kum/leadlag/internal/compensator"
	"github.com/san-kum/leadlag/internal/design"
	"github.com/san-kum/leadlag/internal/freqresp"
	"github.com/san-kum/leadlag/internal/metrics"
)

// Engine identifies the synthesis engine in report metadata.
const Engine = "leadlag-de/1.0"

type Report struct {
	Success      bool                    `json:"success"`
	Compensator  compensator.Compensator `json:"compensator"`
	Margins      Margins                 `json:"margins"`
	Bode         Bode                    `json:"bode"`
	Nyquist      Nyquist                 `json:"nyquist"`
	StepResponse Step                    `json:"stepResponse"`
	StepInfo     StepInfo                `json:"stepInfo"`
	Meta         Meta                    `json:"meta"`
}

// Margins holds the phase margin in degrees and the gain margin in dB;
// unbounded margins are "Inf".
type Margins struct {
	PM             Number `json:"pm"`
	GM             Number `json:"gm"`
	GainCrossover  Number `json:"gainCrossover"`
	PhaseCrossover Number `json:"phaseCrossover"`
}

type Series struct {
	Magnitude []Number `json:"magnitude"`
	Phase     []Number `json:"phase"`
}

type Bode struct {
	Original    Series   `json:"original"`
	Compensated Series   `json:"compensated"`
	Frequency   []Number `json:"frequency"`
	Nyquist     Nyquist  `json:"nyquist"`
}

type Nyquist struct {
	Real []Number `json:"real"`
	Imag []Number `json:"imag"`
}

type Step struct {
	Time      []Number `json:"time"`
	Amplitude []Number `json:"amplitude"`
}

type StepInfo struct {
	RiseTime     Number `json:"riseTime"`
	SettlingTime Number `json:"settlingTime"`
	Overshoot    Number `json:"overshoot"`
	Peak         Number `json:"peak"`
	PeakTime     Number `json:"peakTime"`
	SteadyState  Number `json:"steadyState"`
	IAE          Number `json:"iae"`
}

type Meta struct {
	// ExecutionTime is the wall time of the request in milliseconds.
	ExecutionTime int64   `json:"executionTime"`
	Engine        string  `json:"engine"`
	Cost          Number  `json:"cost"`
	Evaluations   int     `json:"evaluations"`
	Generations   int     `json:"generations"`
	Converged     bool    `json:"converged"`
	Interrupted   bool    `json:"interrupted"`
	Faults        int64   `json:"faults"`
	Horizon       float64 `json:"horizon"`
	RunID         string  `json:"runId,omitempty"`
}

// Build queries every dataset of an optimized session. start is when the
// caller began handling the request.
func Build(ctx context.Context, s *design.Session, start time.Time) (*Report, error) {
	res, err := s.Result()
	if err != nil {
		return nil, err
	}
	bode, err := s.Bode()
	if err != nil {
		return nil, err
	}
	ny, err := s.Nyquist()
	if err != nil {
		return nil, err
	}
	step, err := s.Step(ctx)
	if err != nil {
		return nil, err
	}

	nyquist := fromNyquist(ny)
	return &Report{
		Success:     true,
		Compensator: res.Compensator,
		Margins:     FromMargins(res.Margins),
		Bode: Bode{
			Original:    fromSeries(bode.Plant),
			Compensated: fromSeries(bode.Compensated),
			Frequency:   Numbers(bode.Frequency()),
			Nyquist:     nyquist,
		},
		Nyquist: nyquist,
		StepResponse: Step{
			Time:      Numbers(step.Response.Time),
			Amplitude: Numbers(step.Response.Amplitude),
		},
		StepInfo: FromStepInfo(step.Info),
		Meta: Meta{
			ExecutionTime: time.Since(start).Milliseconds(),
			Engine:        Engine,
			Cost:          Number(res.Evaluation.Cost),
			Evaluations:   res.Search.Evaluations,
			Generations:   res.Search.Generations,
			Converged:     res.Search.Converged,
			Interrupted:   res.Interrupted,
			Faults:        res.Faults,
			Horizon:       step.Horizon,
		},
	}, nil
}

func FromMargins(m freqresp.Margins) Margins {
	gm, _ := m.GainMarginDB()
	return Margins{
		PM:             Number(m.PhaseMargin),
		GM:             Number(gm),
		GainCrossover:  Number(m.GainCrossover),
		PhaseCrossover: Number(m.PhaseCrossover),
	}
}

func FromStepInfo(i metrics.StepInfo) StepInfo {
	return StepInfo{
		RiseTime:     Number(i.RiseTime),
		SettlingTime: Number(i.SettlingTime),
		Overshoot:    Number(i.Overshoot),
		Peak:         Number(i.Peak),
		PeakTime:     Number(i.PeakTime),
		SteadyState:  Number(i.SteadyState),
		IAE:          Number(i.IAE),
	}
}

func fromSeries(s freqresp.Series) Series {
	return Series{Magnitude: Numbers(s.Magnitude), Phase: Numbers(s.Phase)}
}

func fromNyquist(n freqresp.NyquistSeries) Nyquist {
	return Nyquist{Real: Numbers(n.Real), Imag: Numbers(n.Imag)}
}
