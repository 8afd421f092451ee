package main

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/san-kum/leadlag/internal/config"
	"github.com/san-kum/leadlag/internal/logging"
)

var (
	dataDir  string
	logLevel string
	logDev   bool

	// tune
	numerator   []float64
	denominator []float64
	targetPM    float64
	minBW       float64
	maxSSE      float64
	configFile  string
	preset      string
	strategy    string
	seed        int64
	workers     int
	generations int
	method      string
	live        bool
	asciiPlot   bool
	pngDir      string
	noSave      bool
	jsonOut     bool

	// serve
	addr           string
	requestTimeout = config.DefaultRequestTimeout
	envFile        string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "leadlag",
		Short:         "lead/lag compensator synthesis",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (error, info, debug, trace)")
	rootCmd.PersistentFlags().BoolVar(&logDev, "log-dev", false, "human-readable console logs")

	tuneCmd := &cobra.Command{
		Use:   "tune [plant]",
		Short: "synthesize a compensator",
		Long: "Synthesize a lead/lag compensator for a plant given by --num/--den,\n" +
			"a config file, or a named preset plant (see `leadlag presets`).",
		Args: cobra.MaximumNArgs(1),
		RunE: runTune,
	}
	tuneCmd.Flags().Float64SliceVar(&numerator, "num", nil, "plant numerator, highest power first")
	tuneCmd.Flags().Float64SliceVar(&denominator, "den", nil, "plant denominator, highest power first")
	tuneCmd.Flags().Float64Var(&targetPM, "pm", config.DefaultTargetPM, "target phase margin (deg)")
	tuneCmd.Flags().Float64Var(&minBW, "bw", 0, "minimum bandwidth (rad/s), 0 to disable")
	tuneCmd.Flags().Float64Var(&maxSSE, "ess", -1, "maximum steady-state error, negative to disable")
	tuneCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	tuneCmd.Flags().StringVar(&preset, "preset", "", "preset scenario for the named plant")
	tuneCmd.Flags().StringVar(&strategy, "strategy", "de", "optimizer strategy (de, grid)")
	tuneCmd.Flags().Int64Var(&seed, "seed", 42, "optimizer seed")
	tuneCmd.Flags().IntVar(&workers, "workers", 0, "parallel objective evaluations (0 = all CPUs)")
	tuneCmd.Flags().IntVar(&generations, "generations", 0, "maximum DE generations (0 = default)")
	tuneCmd.Flags().StringVar(&method, "method", "", "step integrator (exact, rk4, rk45, euler)")
	tuneCmd.Flags().BoolVar(&live, "live", false, "show live optimizer progress")
	tuneCmd.Flags().BoolVar(&asciiPlot, "plot", false, "print Bode and step plots")
	tuneCmd.Flags().StringVar(&pngDir, "png", "", "write PNG plots to this directory")
	tuneCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	tuneCmd.Flags().BoolVar(&jsonOut, "json", false, "print the full JSON report")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&asciiPlot, "plot", false, "print Bode and step plots")
	showCmd.Flags().BoolVar(&jsonOut, "json", false, "export the run as JSON")

	presetsCmd := &cobra.Command{
		Use:   "presets [plant]",
		Short: "list preset plants and scenarios",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a default config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(args[0], config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the optimization API over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")
	serveCmd.Flags().DurationVar(&requestTimeout, "request-timeout", config.DefaultRequestTimeout, "search time limit per request")
	serveCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	serveCmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file read before LEADLAG_* variables")
	serveCmd.Flags().StringVar(&strategy, "strategy", "de", "optimizer strategy (de, grid)")
	serveCmd.Flags().IntVar(&workers, "workers", 0, "parallel objective evaluations (0 = all CPUs)")
	serveCmd.Flags().Int64Var(&seed, "seed", 42, "optimizer seed")

	rootCmd.AddCommand(tuneCmd, listCmd, showCmd, presetsCmd, initCmd, serveCmd)
	return rootCmd
}

func newLogger(level string, dev bool) logr.Logger {
	log, err := logging.New(level, dev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}
	return log
}
