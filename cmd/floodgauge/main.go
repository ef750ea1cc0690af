// Command floodgauge works with Environment Agency flood-monitoring data:
// live readings, the station catalog, the daily readings archive and the
// reshaping of archived series into model-ready datasets.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gaugeworks/floodgauge/internal/adapter/archive"
	"github.com/gaugeworks/floodgauge/internal/adapter/floodapi"
	"github.com/gaugeworks/floodgauge/internal/catalog"
	"github.com/gaugeworks/floodgauge/internal/config"
	"github.com/gaugeworks/floodgauge/internal/observability"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "floodgauge",
	Short: "Tools for UK flood-monitoring data",
	Long: `Floodgauge reads the Environment Agency flood-monitoring API: live
readings across the measure network, the station catalog, daily archive
ingestion into sqlite, and dataset building for sequence models.`,
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app bundles the pieces every subcommand wires together from config.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	return &app{cfg: cfg, logger: logger, metrics: observability.NewMetrics()}, nil
}

func (a *app) client() *floodapi.Client {
	return floodapi.NewClient(a.cfg.APIBaseURL, a.cfg.HTTPTimeout, a.metrics, a.logger)
}

func (a *app) openStore() (*archive.Store, error) {
	return archive.Open(a.cfg.ArchiveDBPath, a.logger)
}

// loadCatalog reads the snapshot named by CATALOG_PATH, or the embedded
// snapshot when none is configured.
func (a *app) loadCatalog() (*catalog.Catalog, error) {
	cat := catalog.New(a.logger)
	if a.cfg.CatalogPath != "" {
		if err := cat.LoadSnapshot(a.cfg.CatalogPath); err != nil {
			return nil, err
		}
		return cat, nil
	}
	if err := cat.LoadEmbedded(); err != nil {
		return nil, err
	}
	return cat, nil
}

// withOutput runs fn against the named file, creating parent directories as
// needed. An empty path or "-" writes to stdout.
func withOutput(path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(os.Stdout)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close() //nolint:errcheck // write error takes precedence
		return err
	}
	return f.Close()
}
