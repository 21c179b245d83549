package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/partsim/internal/export"
	"github.com/san-kum/partsim/internal/metrics"
	"github.com/san-kum/partsim/internal/storage"
)

var statColumns = map[string]func(metrics.Stats) float64{
	"kinetic":   func(s metrics.Stats) float64 { return s.KineticEnergy },
	"speed":     func(s metrics.Stats) float64 { return s.MeanSpeed },
	"max-speed": func(s metrics.Stats) float64 { return s.MaxSpeed },
	"strain":    func(s metrics.Stats) float64 { return s.MeanStrain },
	"particles": func(s metrics.Stats) float64 { return float64(s.Particles) },
	"links":     func(s metrics.Stats) float64 { return float64(s.Links) },
	"escaped":   func(s metrics.Stats) float64 { return float64(s.Escaped) },
}

func listRuns(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	runs, err := store.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tPRESET\tPARTICLES\tSTEPS\tBACKEND\tTIME")
	fmt.Fprintln(w, "--\t-----\t------\t---------\t-----\t-------\t----")
	for _, run := range runs {
		p := run.Preset
		if p == "" {
			p = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			run.ID, run.Scene, p, run.Particles, run.Steps, run.Backend,
			run.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	field, ok := statColumns[plotField]
	if !ok {
		return fmt.Errorf("unknown field %q", plotField)
	}

	store := storage.New(dataDir)
	meta, err := store.Load(args[0])
	if err != nil {
		return err
	}
	series, err := store.LoadStats(args[0])
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return fmt.Errorf("run %s has no sampled stats", args[0])
	}

	data := make([]float64, len(series))
	for i, s := range series {
		data[i] = field(s)
	}

	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("%s: %s over %d steps", meta.Scene, plotField, meta.Steps)),
	)
	fmt.Println(graph)

	if plotSVG != "" {
		if err := os.WriteFile(plotSVG, []byte(export.SeriesToSVG(data, 800, 240, "#00ff9f")), 0644); err != nil {
			return err
		}
		fmt.Printf("plot written to %s\n", plotSVG)
	}

	sum := metrics.Summarize(series, field)
	fmt.Printf("\nmean %.4f  std %.4f  min %.4f  max %.4f\n", sum.Mean, sum.StdDev, sum.Min, sum.Max)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	return store.Export(os.Stdout, args[0], exportFormat)
}
