package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/leadlag/internal/design"
	"github.com/san-kum/leadlag/internal/freqresp"
	"github.com/san-kum/leadlag/internal/integrators"
	"github.com/san-kum/leadlag/internal/lti"
	"github.com/san-kum/leadlag/internal/objective"
	"github.com/san-kum/leadlag/internal/optim"
)

var ErrInvalid = errors.New("config: invalid configuration")

const (
	DefaultTargetPM       = 45.0
	DefaultAddr           = ":8080"
	DefaultRequestTimeout = 30 * time.Second
	DefaultDataDir        = ".leadlag"
	DefaultLogLevel       = "info"
)

type Config struct {
	Plant     PlantConfig       `yaml:"plant"`
	Spec      objective.Spec    `yaml:"spec"`
	Optimizer OptimizerConfig   `yaml:"optimizer"`
	Objective objective.Options `yaml:"objective"`
	Sweep     SweepConfig       `yaml:"sweep"`
	Step      StepConfig        `yaml:"step"`
	Server    ServerConfig      `yaml:"server"`
	Log       LogConfig         `yaml:"log"`
	DataDir   string            `yaml:"data_dir"`
}

type PlantConfig struct {
	Name        string    `yaml:"name,omitempty"`
	Numerator   []float64 `yaml:"numerator,flow"`
	Denominator []float64 `yaml:"denominator,flow"`
}

type BoundsConfig struct {
	K optim.Bound `yaml:"k"`
	Z optim.Bound `yaml:"z"`
	P optim.Bound `yaml:"p"`
}

type OptimizerConfig struct {
	// Strategy is "de" or "grid".
	Strategy   string         `yaml:"strategy"`
	Bounds     BoundsConfig   `yaml:"bounds"`
	DE         optim.DEConfig `yaml:"de"`
	GridPoints int            `yaml:"grid_points"`
}

type SweepConfig struct {
	Margin  freqresp.Sweep `yaml:"margin"`
	Bode    freqresp.Sweep `yaml:"bode"`
	Nyquist freqresp.Sweep `yaml:"nyquist"`
}

type StepConfig struct {
	Samples         int     `yaml:"samples"`
	Horizon         float64 `yaml:"horizon"`
	HorizonFactor   float64 `yaml:"horizon_factor"`
	FallbackHorizon float64 `yaml:"fallback_horizon"`
	Method          string  `yaml:"method"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func DefaultConfig() *Config {
	opts := design.DefaultOptions()
	return &Config{
		Plant: PlantConfig{
			Name:        "first_order",
			Numerator:   []float64{1},
			Denominator: []float64{1, 1},
		},
		Spec: objective.Spec{TargetPM: DefaultTargetPM},
		Optimizer: OptimizerConfig{
			Strategy: opts.Strategy,
			Bounds: BoundsConfig{
				K: opts.Bounds[0],
				Z: opts.Bounds[1],
				P: opts.Bounds[2],
			},
			DE:         opts.DE,
			GridPoints: opts.GridPoints,
		},
		Objective: opts.Objective,
		Sweep: SweepConfig{
			Margin:  opts.MarginSweep,
			Bode:    opts.BodeSweep,
			Nyquist: opts.NyquistSweep,
		},
		Step: StepConfig{
			Samples:         opts.Step.Samples,
			HorizonFactor:   opts.Step.HorizonFactor,
			FallbackHorizon: opts.Step.FallbackHorizon,
			Method:          opts.Step.Method,
		},
		Server: ServerConfig{
			Addr:           DefaultAddr,
			RequestTimeout: DefaultRequestTimeout,
		},
		Log:     LogConfig{Level: DefaultLogLevel},
		DataDir: DefaultDataDir,
	}
}

// Load reads a YAML file over the defaults, so partial files are allowed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if _, err := c.Plant.TransferFunction(); err != nil {
		return fmt.Errorf("%w: plant: %w", ErrInvalid, err)
	}
	if err := c.Spec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch c.Optimizer.Strategy {
	case design.StrategyDE, design.StrategyGrid:
	default:
		return fmt.Errorf("%w: unknown optimizer strategy %q", ErrInvalid, c.Optimizer.Strategy)
	}
	bounds := []struct {
		name string
		b    optim.Bound
	}{
		{"k", c.Optimizer.Bounds.K},
		{"z", c.Optimizer.Bounds.Z},
		{"p", c.Optimizer.Bounds.P},
	}
	for _, nb := range bounds {
		if !(nb.b.Lo > 0) || nb.b.Hi <= nb.b.Lo {
			return fmt.Errorf("%w: bounds for %s must satisfy 0 < lo < hi, got [%g, %g]", ErrInvalid, nb.name, nb.b.Lo, nb.b.Hi)
		}
	}
	sweeps := []struct {
		name string
		s    freqresp.Sweep
	}{
		{"margin", c.Sweep.Margin},
		{"bode", c.Sweep.Bode},
		{"nyquist", c.Sweep.Nyquist},
	}
	for _, ns := range sweeps {
		if !ns.s.Valid() {
			return fmt.Errorf("%w: %s sweep %+v", ErrInvalid, ns.name, ns.s)
		}
	}
	if c.Step.Samples < 2 {
		return fmt.Errorf("%w: step samples must be at least 2, got %d", ErrInvalid, c.Step.Samples)
	}
	if _, ok := integrators.New(c.Step.Method); !ok {
		return fmt.Errorf("%w: unknown step method %q", ErrInvalid, c.Step.Method)
	}
	return nil
}

func (p PlantConfig) TransferFunction() (*lti.TransferFunction, error) {
	return lti.New(p.Numerator, p.Denominator)
}

// DesignOptions converts the file layout into session options.
func (c *Config) DesignOptions(log logr.Logger) design.Options {
	return design.Options{
		Bounds:       []optim.Bound{c.Optimizer.Bounds.K, c.Optimizer.Bounds.Z, c.Optimizer.Bounds.P},
		Strategy:     c.Optimizer.Strategy,
		DE:           c.Optimizer.DE,
		GridPoints:   c.Optimizer.GridPoints,
		Objective:    c.Objective,
		MarginSweep:  c.Sweep.Margin,
		BodeSweep:    c.Sweep.Bode,
		NyquistSweep: c.Sweep.Nyquist,
		Step: design.StepOptions{
			Samples:         c.Step.Samples,
			Horizon:         c.Step.Horizon,
			HorizonFactor:   c.Step.HorizonFactor,
			FallbackHorizon: c.Step.FallbackHorizon,
			Method:          c.Step.Method,
		},
		Logger: log,
	}
}
