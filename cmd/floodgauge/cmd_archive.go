package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/gaugeworks/floodgauge/internal/adapter/archive"
	httpadapter "github.com/gaugeworks/floodgauge/internal/adapter/http"
	"github.com/gaugeworks/floodgauge/internal/dataset"
	"github.com/gaugeworks/floodgauge/internal/domain"
	"github.com/gaugeworks/floodgauge/internal/pipeline"
	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Ingest and query the daily readings archive",
}

var archiveFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download archive days into the local database",
	Long: `Fetch downloads one archive CSV per day in the range and loads every
parseable row. Each day commits atomically, so an interrupted run keeps all
fully ingested days. With METRICS_ADDR set, an ops HTTP server reports
progress for the duration of the run.`,
	RunE: runArchiveFetch,
}

var archiveExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export one station's series as CSV",
	RunE:  runArchiveExport,
}

var archiveInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Summarize archive tables",
	RunE:  runArchiveInfo,
}

var archiveDropCmd = &cobra.Command{
	Use:   "drop <table>",
	Short: "Delete an archive table",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveDrop,
}

var (
	fetchStart      string
	fetchEnd        string
	fetchTable      string
	exportStation   string
	exportParameter string
	exportStart     string
	exportEnd       string
	exportTable     string
	exportOut       string
	infoTable       string
)

func init() {
	archiveFetchCmd.Flags().StringVar(&fetchStart, "start", "", "first day to fetch (YYYY-MM-DD)")
	archiveFetchCmd.Flags().StringVar(&fetchEnd, "end", "", "last day to fetch (YYYY-MM-DD)")
	archiveFetchCmd.Flags().StringVar(&fetchTable, "table", archive.DefaultTable, "destination table")
	_ = archiveFetchCmd.MarkFlagRequired("start")
	_ = archiveFetchCmd.MarkFlagRequired("end")

	archiveExportCmd.Flags().StringVar(&exportStation, "station", "", "station reference")
	archiveExportCmd.Flags().StringVarP(&exportParameter, "parameter", "p", "", "filter by parameter (rainfall, level, flow)")
	archiveExportCmd.Flags().StringVar(&exportStart, "start", "", "first day to export (YYYY-MM-DD)")
	archiveExportCmd.Flags().StringVar(&exportEnd, "end", "", "last day to export (YYYY-MM-DD)")
	archiveExportCmd.Flags().StringVar(&exportTable, "table", archive.DefaultTable, "source table")
	archiveExportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "output file, - for stdout")
	_ = archiveExportCmd.MarkFlagRequired("station")

	archiveInfoCmd.Flags().StringVar(&infoTable, "table", "", "inspect a single table")

	archiveCmd.AddCommand(archiveFetchCmd)
	archiveCmd.AddCommand(archiveExportCmd)
	archiveCmd.AddCommand(archiveInfoCmd)
	archiveCmd.AddCommand(archiveDropCmd)
	rootCmd.AddCommand(archiveCmd)
}

func runArchiveFetch(cmd *cobra.Command, _ []string) error {
	r, err := parseDateRange(fetchStart, fetchEnd)
	if err != nil {
		return err
	}
	if err := domain.ValidateArchiveRange(r); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // close on exit

	ctx := cmd.Context()
	if err := store.EnsureTable(ctx, fetchTable); err != nil {
		return err
	}
	loader, err := archive.NewTableWriter(store, fetchTable)
	if err != nil {
		return err
	}

	p := pipeline.New(a.client(), pipeline.NewTransformer(), loader, a.logger, a.metrics)

	var srv *httpadapter.Server
	if a.cfg.MetricsAddr != "" {
		srv = httpadapter.NewServer(a.cfg.MetricsAddr, p, p.Progress, a.logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("ops server error", "error", err)
			}
		}()
	}

	sum, runErr := p.Run(ctx, r.Days())

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("ops server shutdown error", "error", err)
		}
	}

	a.logger.Info("ingest finished",
		"days", sum.Days, "rows", sum.Rows, "loaded", sum.Loaded, "skipped", sum.Skipped)
	return runErr
}

func runArchiveExport(cmd *cobra.Command, _ []string) error {
	param, err := domain.ParseParameter(exportParameter)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // close on exit

	q := archive.SeriesQuery{Table: exportTable, Station: exportStation, Parameter: param}
	if exportStart != "" || exportEnd != "" {
		if exportStart == "" || exportEnd == "" {
			return fmt.Errorf("--start and --end must be given together")
		}
		r, err := parseDateRange(exportStart, exportEnd)
		if err != nil {
			return err
		}
		// --end names a day; include the whole of it.
		r.End = r.End.Add(24*time.Hour - time.Second)
		q.Range = &r
	}

	series, err := store.Series(cmd.Context(), q)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return fmt.Errorf("no readings match")
	}

	a.logger.Info("series exported", "station", exportStation, "readings", len(series))
	return withOutput(exportOut, func(w io.Writer) error {
		return dataset.WriteSeriesCSV(w, series)
	})
}

func runArchiveInfo(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // close on exit

	ctx := cmd.Context()
	tables := []string{infoTable}
	if infoTable == "" {
		if tables, err = store.Tables(ctx); err != nil {
			return err
		}
	}
	if len(tables) == 0 {
		fmt.Println("no archive tables")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tROWS\tSTATIONS\tEARLIEST\tLATEST")
	for _, tbl := range tables {
		info, err := store.Info(ctx, tbl)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
			info.Table, info.Rows, info.Stations, formatDay(info.Earliest), formatDay(info.Latest))
	}
	return w.Flush()
}

func runArchiveDrop(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // close on exit

	info, err := store.Info(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := store.Drop(cmd.Context(), args[0]); err != nil {
		return err
	}
	a.logger.Info("table dropped", "table", args[0], "rows", info.Rows)
	return nil
}

func parseDateRange(start, end string) (domain.DateRange, error) {
	s, err := time.Parse(domain.DayFormat, start)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("parse --start: %w", err)
	}
	e, err := time.Parse(domain.DayFormat, end)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("parse --end: %w", err)
	}
	return domain.NewDateRange(s, e)
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
