package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/leadlag/internal/config"
	"github.com/san-kum/leadlag/internal/storage"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLANT\tTIME\tTYPE\tPM\tTARGET\tCOST")

	for _, run := range runs {
		name := run.Name
		if name == "" {
			name = fmt.Sprintf("%v/%v", run.Numerator, run.Denominator)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.1f\t%.4g\n",
			run.ID,
			name,
			run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			run.Compensator.Type,
			formatMargin(run.Margins.PM.Float(), ""),
			run.Spec.TargetPM,
			run.Meta.Cost.Float(),
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	if jsonOut {
		return st.ExportJSON(os.Stdout, runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	c := meta.Compensator
	fmt.Printf("run:         %s\n", meta.ID)
	if meta.Name != "" {
		fmt.Printf("plant:       %s\n", meta.Name)
	}
	fmt.Printf("numerator:   %v\n", meta.Numerator)
	fmt.Printf("denominator: %v\n", meta.Denominator)
	fmt.Printf("created:     %s\n", meta.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("target pm:   %.1f°\n", meta.Spec.TargetPM)
	fmt.Println()
	fmt.Printf("%s  K=%.6g  T=%.6g  alpha=%.6g\n", c.Type, c.K, c.T, c.Alpha)
	fmt.Printf("pm %s  gm %s\n", formatMargin(meta.Margins.PM.Float(), "°"), formatMargin(meta.Margins.GM.Float(), " dB"))
	fmt.Printf("rise %.4gs  settle %.4gs  overshoot %.2f%%\n",
		meta.StepInfo.RiseTime.Float(), meta.StepInfo.SettlingTime.Float(), meta.StepInfo.Overshoot.Float())

	if !asciiPlot {
		return nil
	}
	bode, err := st.LoadBode(runID)
	if err != nil {
		return err
	}
	step, err := st.LoadStep(runID)
	if err != nil {
		return err
	}
	printPlots(bode.PlantMagnitude, bode.LoopMagnitude, bode.LoopPhase, step.Amplitude)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	plants := config.ListPlants()
	if len(args) == 1 {
		plants = []string{args[0]}
	}

	for _, plant := range plants {
		names := config.ListPresets(plant)
		if len(names) == 0 {
			fmt.Printf("no presets for plant: %s\n", plant)
			continue
		}
		fmt.Printf("%s:\n", plant)
		for _, name := range names {
			fmt.Printf("  %-12s %s\n", name, config.Presets[plant][name].Description)
		}
	}
	return nil
}
