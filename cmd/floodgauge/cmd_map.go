package main

import (
	"fmt"

	"github.com/gaugeworks/floodgauge/internal/domain"
	"github.com/gaugeworks/floodgauge/internal/render"
	"github.com/spf13/cobra"
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Render current readings as a national heat map",
	Long: `Map fetches the latest reading from every measure and draws a PNG heat
map over England and Wales. River levels plot relative to each station's
typical range on a diverging scale; rainfall plots on a sequential scale.

Stations absent from the catalog have no position and are skipped, as are
level stations without a stage scale.`,
	RunE: runMap,
}

var (
	mapParameter string
	mapOut       string
	mapTitle     string
)

func init() {
	mapCmd.Flags().StringVarP(&mapParameter, "parameter", "p", "level", "parameter to plot (rainfall, level, flow)")
	mapCmd.Flags().StringVarP(&mapOut, "out", "o", "map.png", "output PNG path")
	mapCmd.Flags().StringVar(&mapTitle, "title", "", "plot title override")
	rootCmd.AddCommand(mapCmd)
}

func runMap(cmd *cobra.Command, _ []string) error {
	param, err := domain.ParseParameter(mapParameter)
	if err != nil {
		return err
	}
	if param == domain.ParameterAny {
		return fmt.Errorf("map needs a single parameter (rainfall, level or flow)")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	cat, err := a.loadCatalog()
	if err != nil {
		return err
	}
	readings, err := a.client().LatestMeasures(cmd.Context(), param)
	if err != nil {
		return err
	}

	var points []render.StationValue
	skipped := 0
	for _, r := range readings {
		st, ok := cat.Get(r.StationReference)
		if !ok {
			skipped++
			continue
		}
		value := r.Value
		if param == domain.ParameterLevel {
			rel, ok := st.RelativeLevel(r.Value)
			if !ok {
				skipped++
				continue
			}
			value = rel
		}
		points = append(points, render.StationValue{Station: st, Value: value})
	}
	if len(points) == 0 {
		return fmt.Errorf("no plottable readings for parameter %s", param)
	}

	cfg := render.Config{Title: mapTitle}
	switch param {
	case domain.ParameterLevel:
		cfg.Style = render.StyleDiverging
		cfg.MinValue, cfg.MaxValue = -0.75, 1.5
		if cfg.Title == "" {
			cfg.Title = "River levels relative to typical range"
		}
	case domain.ParameterRainfall:
		cfg.Style = render.StyleSequential
		cfg.MinValue, cfg.MaxValue = 0, 0.3
		if cfg.Title == "" {
			cfg.Title = "Rainfall (mm)"
		}
	default:
		cfg.Style = render.StyleSequential
		if cfg.Title == "" {
			cfg.Title = fmt.Sprintf("Latest %s readings", param)
		}
	}

	if err := render.Render(points, cfg, mapOut); err != nil {
		return err
	}
	a.logger.Info("map rendered",
		"path", mapOut, "parameter", param, "stations", len(points), "skipped", skipped)
	return nil
}
