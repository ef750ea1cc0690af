package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gaugeworks/floodgauge/internal/catalog"
	"github.com/gaugeworks/floodgauge/internal/domain"
	"github.com/gaugeworks/floodgauge/internal/osgb"
	"github.com/spf13/cobra"
)

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "Work with the station catalog",
}

var stationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog stations",
	RunE:  runStationsList,
}

var stationsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild the catalog from the API and save a snapshot",
	Long: `Refresh replaces the whole catalog with the station list the API serves
right now, optionally enriches level stations with their stage scales, and
writes the result as a snapshot CSV.`,
	RunE: runStationsRefresh,
}

var stationsDetailCmd = &cobra.Command{
	Use:   "detail <reference>",
	Short: "Fetch one station's full record from the API",
	Args:  cobra.ExactArgs(1),
	RunE:  runStationsDetail,
}

var stationsNearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Find the catalog station closest to a point",
	RunE:  runStationsNearest,
}

var (
	stationsParameter string
	refreshOut        string
	refreshEnrich     bool
	nearestLat        float64
	nearestLon        float64
)

func init() {
	stationsCmd.PersistentFlags().StringVarP(&stationsParameter, "parameter", "p", "", "filter by parameter (rainfall, level, flow)")
	stationsRefreshCmd.Flags().StringVarP(&refreshOut, "out", "o", "", "snapshot path (defaults to CATALOG_PATH)")
	stationsRefreshCmd.Flags().BoolVar(&refreshEnrich, "enrich", false, "fetch stage scales for level stations missing one")
	stationsNearestCmd.Flags().Float64Var(&nearestLat, "lat", 0, "latitude (WGS84)")
	stationsNearestCmd.Flags().Float64Var(&nearestLon, "lon", 0, "longitude (WGS84)")
	_ = stationsNearestCmd.MarkFlagRequired("lat")
	_ = stationsNearestCmd.MarkFlagRequired("lon")

	stationsCmd.AddCommand(stationsListCmd)
	stationsCmd.AddCommand(stationsRefreshCmd)
	stationsCmd.AddCommand(stationsDetailCmd)
	stationsCmd.AddCommand(stationsNearestCmd)
	rootCmd.AddCommand(stationsCmd)
}

func runStationsList(_ *cobra.Command, _ []string) error {
	param, err := domain.ParseParameter(stationsParameter)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	cat, err := a.loadCatalog()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REFERENCE\tNAME\tRIVER\tTOWN\tPARAMETERS")
	count := 0
	for _, st := range cat.List() {
		if !st.Supports(param) {
			continue
		}
		count++
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			st.Reference, st.Name, st.RiverName, st.Town, paramNames(st.Parameters))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	a.logger.Info("catalog listed", "stations", count)
	return nil
}

func runStationsRefresh(cmd *cobra.Command, _ []string) error {
	param, err := domain.ParseParameter(stationsParameter)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	out := refreshOut
	if out == "" {
		out = a.cfg.CatalogPath
	}
	if out == "" {
		return fmt.Errorf("no snapshot path: set --out or CATALOG_PATH")
	}

	cat := catalog.New(a.logger)
	client := a.client()
	n, err := cat.Refresh(cmd.Context(), client, param)
	if err != nil {
		return err
	}
	a.logger.Info("catalog refreshed", "stations", n)

	if refreshEnrich {
		enriched, err := cat.EnrichDetail(cmd.Context(), client)
		if err != nil {
			return err
		}
		a.logger.Info("stage scales enriched", "stations", enriched)
	}

	if err := cat.SaveSnapshot(out); err != nil {
		return err
	}
	a.logger.Info("snapshot written", "path", out)
	return nil
}

func runStationsDetail(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	st, err := a.client().StationDetail(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	easting, northing := st.Easting, st.Northing
	if easting == 0 && northing == 0 {
		easting, northing = osgb.EastingNorthing(st.Lat, st.Lon)
	}

	fmt.Printf("Reference:   %s\n", st.Reference)
	fmt.Printf("Name:        %s\n", st.Name)
	if st.RiverName != "" {
		fmt.Printf("River:       %s\n", st.RiverName)
	}
	if st.Town != "" {
		fmt.Printf("Town:        %s\n", st.Town)
	}
	fmt.Printf("Position:    %.5f, %.5f\n", st.Lat, st.Lon)
	fmt.Printf("Grid:        %.0f, %.0f\n", easting, northing)
	fmt.Printf("Parameters:  %s\n", paramNames(st.Parameters))
	if sc := st.StageScale; sc != nil {
		fmt.Printf("Typical range: %g to %g\n", sc.TypicalRangeLow, sc.TypicalRangeHigh)
		fmt.Printf("On record:     %g to %g\n", sc.MinOnRecord, sc.MaxOnRecord)
	}
	return nil
}

func runStationsNearest(_ *cobra.Command, _ []string) error {
	param, err := domain.ParseParameter(stationsParameter)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	cat, err := a.loadCatalog()
	if err != nil {
		return err
	}

	easting, northing := osgb.EastingNorthing(nearestLat, nearestLon)
	st, ok := cat.Nearest(easting, northing, param)
	if !ok {
		return fmt.Errorf("no catalog station matches")
	}
	dist := osgb.Distance(easting, northing, st.Easting, st.Northing)
	fmt.Printf("%s  %s", st.Reference, st.Name)
	if st.RiverName != "" {
		fmt.Printf("  (%s)", st.RiverName)
	}
	fmt.Printf("  %.1f km away\n", dist/1000)
	return nil
}

func paramNames(ps []domain.Parameter) string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = string(p)
	}
	return strings.Join(names, ",")
}
