package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/leadlag/internal/config"
	"github.com/san-kum/leadlag/internal/design"
	"github.com/san-kum/leadlag/internal/objective"
	"github.com/san-kum/leadlag/internal/optim"
	"github.com/san-kum/leadlag/internal/plot"
	"github.com/san-kum/leadlag/internal/report"
	"github.com/san-kum/leadlag/internal/sim"
	"github.com/san-kum/leadlag/internal/storage"
	"github.com/san-kum/leadlag/internal/tui"
)

// tuneConfig resolves the run configuration. Precedence: flags > config
// file > preset > defaults.
func tuneConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if len(args) == 1 {
		plant := args[0]
		scenario := preset
		if scenario == "" {
			names := config.ListPresets(plant)
			if len(names) == 0 {
				return nil, fmt.Errorf("unknown plant: %s (available: %v)", plant, config.ListPlants())
			}
			scenario = names[0]
		}
		cfg = config.GetPreset(plant, scenario)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", scenario, config.ListPresets(plant))
		}
	} else if preset != "" {
		return nil, fmt.Errorf("--preset needs a plant argument")
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("num") || flags.Changed("den") {
		cfg.Plant = config.PlantConfig{Numerator: numerator, Denominator: denominator}
		if !flags.Changed("num") {
			cfg.Plant.Numerator = []float64{1}
		}
	}
	if flags.Changed("pm") {
		cfg.Spec.TargetPM = targetPM
	}
	if flags.Changed("bw") {
		cfg.Spec.MinBandwidth = nil
		if minBW > 0 {
			cfg.Spec.MinBandwidth = objective.Float(minBW)
		}
	}
	if flags.Changed("ess") {
		cfg.Spec.MaxSteadyStateError = nil
		if maxSSE >= 0 {
			cfg.Spec.MaxSteadyStateError = objective.Float(maxSSE)
		}
	}
	if flags.Changed("strategy") {
		cfg.Optimizer.Strategy = strategy
	}
	if flags.Changed("seed") {
		cfg.Optimizer.DE.Seed = seed
	}
	if flags.Changed("workers") {
		cfg.Optimizer.DE.Workers = workers
	}
	if flags.Changed("generations") {
		cfg.Optimizer.DE.MaxGenerations = generations
	}
	if flags.Changed("method") {
		cfg.Step.Method = method
	}
	if flags.Changed("data") || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-dev") {
		cfg.Log.Development = logDev
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := tuneConfig(cmd, args)
	if err != nil {
		return err
	}
	log := newLogger(cfg.Log.Level, cfg.Log.Development)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	opts := cfg.DesignOptions(log)

	var session *design.Session
	newSession := func(obs optim.Observer) error {
		opts.Observer = obs
		s, err := design.New(cfg.Plant.Numerator, cfg.Plant.Denominator, cfg.Spec, opts)
		session = s
		return err
	}

	var res *design.Result
	if live {
		total := cfg.Optimizer.DE.MaxGenerations
		if cfg.Optimizer.Strategy == design.StrategyGrid {
			total = cfg.Optimizer.GridPoints
		}
		res, err = tui.Run(ctx, plantLabel(cfg), total, func(ctx context.Context, obs optim.Observer) (*design.Result, error) {
			if err := newSession(obs); err != nil {
				return nil, err
			}
			return session.Optimize(ctx)
		})
	} else {
		if err = newSession(nil); err != nil {
			return err
		}
		res, err = session.Optimize(ctx)
	}
	if err != nil && (res == nil || !res.Interrupted) {
		return err
	}
	if res.Interrupted {
		fmt.Println("search interrupted, reporting best compensator so far")
	}

	rep, err := report.Build(context.Background(), session, start)
	if err != nil {
		return err
	}

	if !noSave {
		st := storage.New(cfg.DataDir)
		if err := st.Init(); err != nil {
			return err
		}
		id, err := st.Save(storage.Run{
			Name:        cfg.Plant.Name,
			Numerator:   cfg.Plant.Numerator,
			Denominator: cfg.Plant.Denominator,
			Spec:        cfg.Spec,
			Report:      rep,
		})
		if err != nil {
			return err
		}
		rep.Meta.RunID = id
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	printSummary(cfg, res, rep)

	if asciiPlot {
		printPlots(report.Floats(rep.Bode.Original.Magnitude), report.Floats(rep.Bode.Compensated.Magnitude),
			report.Floats(rep.Bode.Compensated.Phase), report.Floats(rep.StepResponse.Amplitude))
	}

	if pngDir != "" {
		bode, err := session.Bode()
		if err != nil {
			return err
		}
		ny, err := session.Nyquist()
		if err != nil {
			return err
		}
		paths, err := plot.SaveAll(pngDir, plot.Set{
			Plant:   bode.Plant,
			Loop:    bode.Compensated,
			Nyquist: ny,
			Step: sim.Response{
				Time:      report.Floats(rep.StepResponse.Time),
				Amplitude: report.Floats(rep.StepResponse.Amplitude),
			},
			TargetPM: cfg.Spec.TargetPM,
		})
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Printf("wrote %s\n", p)
		}
	}
	return nil
}

func plantLabel(cfg *config.Config) string {
	if cfg.Plant.Name != "" {
		return cfg.Plant.Name
	}
	tf, err := cfg.Plant.TransferFunction()
	if err != nil {
		return "plant"
	}
	return tf.String()
}

func printSummary(cfg *config.Config, res *design.Result, rep *report.Report) {
	c := res.Compensator
	fmt.Printf("plant:       %s\n", plantLabel(cfg))
	fmt.Printf("target pm:   %.1f°\n", cfg.Spec.TargetPM)
	fmt.Println()
	fmt.Printf("compensator: %s\n", c.Type)
	fmt.Printf("  K     = %.6g\n", c.K)
	fmt.Printf("  T     = %.6g\n", c.T)
	fmt.Printf("  alpha = %.6g\n", c.Alpha)
	fmt.Printf("  C(s)  = %s\n", res.Controller)
	fmt.Println()
	fmt.Printf("phase margin: %s\n", formatMargin(res.Margins.PhaseMargin, "°"))
	gm, _ := res.Margins.GainMarginDB()
	fmt.Printf("gain margin:  %s\n", formatMargin(gm, " dB"))
	if res.Margins.HasGainCrossover() {
		fmt.Printf("crossover:    %.4g rad/s\n", res.Margins.GainCrossover)
	}
	fmt.Println()

	info := rep.StepInfo
	fmt.Printf("step: rise %.4gs  settle %.4gs  overshoot %.2f%%  final %.4g\n",
		info.RiseTime.Float(), info.SettlingTime.Float(), info.Overshoot.Float(), info.SteadyState.Float())
	fmt.Printf("cost %.6g  evaluations %d  generations %d  (%s)\n",
		res.Evaluation.Cost, res.Search.Evaluations, res.Search.Generations, res.Duration.Round(time.Millisecond))
	if res.Faults > 0 || res.Invalid > 0 {
		fmt.Printf("rejected candidates: %d invalid, %d faults\n", res.Invalid, res.Faults)
	}
	if rep.Meta.RunID != "" {
		fmt.Printf("saved run %s\n", rep.Meta.RunID)
	}
}

func formatMargin(v float64, unit string) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f%s", v, unit)
}

func printPlots(plantMag, loopMag, loopPhase, step []float64) {
	opts := []asciigraph.Option{asciigraph.Height(10), asciigraph.Width(80)}

	fmt.Println()
	fmt.Println(asciigraph.PlotMany([][]float64{gaps(plantMag), gaps(loopMag)},
		append(opts,
			asciigraph.SeriesColors(asciigraph.Default, asciigraph.Blue),
			asciigraph.Caption("bode magnitude (dB), plant and compensated"))...))
	fmt.Println()
	fmt.Println(asciigraph.Plot(gaps(loopPhase), append(opts, asciigraph.Caption("compensated phase (deg)"))...))
	fmt.Println()
	fmt.Println(asciigraph.Plot(gaps(step), append(opts, asciigraph.Caption("closed-loop step response"))...))
}

// gaps replaces non-finite samples with NaN, which asciigraph leaves blank.
func gaps(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		if math.IsInf(x, 0) {
			x = math.NaN()
		}
		out[i] = x
	}
	return out
}
