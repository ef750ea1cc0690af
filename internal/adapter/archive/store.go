// Package archive persists historical readings in a local SQLite database
// so a date range only has to be downloaded once. Tables are user-named:
// each ingest targets a table, and datasets are built from whichever table
// holds the period of interest.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gaugeworks/floodgauge/internal/domain"
)

// DefaultTable is used when the caller does not name a table.
const DefaultTable = "readings"

// tableNameRe constrains names that get interpolated into SQL identifiers.
var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store wraps the SQLite archive database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates the database file and its parent directory if needed and
// prepares the connection pool. Pass ":memory:" for an ephemeral store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}

	// SQLite allows one writer at a time; a single connection also keeps
	// an in-memory database from being silently recreated per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive database: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureTable creates the named readings table and its station/time index
// when missing.
func (s *Store) EnsureTable(ctx context.Context, table string) error {
	if err := validateTableName(table); err != nil {
		return err
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		date_time TEXT NOT NULL,
		station_reference TEXT NOT NULL,
		parameter TEXT NOT NULL,
		value REAL NOT NULL
	)`, table)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q (station_reference, date_time)`,
		table+"_station_time_idx", table)
	if _, err := s.db.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("create index on %s: %w", table, err)
	}
	return nil
}

// IngestBatch inserts readings into the table inside one transaction.
func (s *Store) IngestBatch(ctx context.Context, table string, readings []domain.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	if err := validateTableName(table); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ingest: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %q (date_time, station_reference, parameter, value) VALUES (?, ?, ?, ?)`, table))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range readings {
		_, err := stmt.ExecContext(ctx,
			r.Time.UTC().Format(time.RFC3339), r.StationReference, string(r.Parameter), r.Value)
		if err != nil {
			return fmt.Errorf("insert reading for %s: %w", r.StationReference, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ingest: %w", err)
	}
	return nil
}

// SeriesQuery selects readings for one station from one table.
type SeriesQuery struct {
	Table     string
	Station   string
	Parameter domain.Parameter  // ParameterAny selects every parameter
	Range     *domain.DateRange // nil selects the whole table
}

// Series returns matching readings in chronological order. Timestamps are
// stored as RFC 3339 UTC strings, which sort lexicographically in time
// order, so ordering and range filters run on the text column directly.
func (s *Store) Series(ctx context.Context, q SeriesQuery) ([]domain.Reading, error) {
	if err := validateTableName(q.Table); err != nil {
		return nil, err
	}
	if q.Station == "" {
		return nil, errors.New("station reference is required")
	}

	query := fmt.Sprintf(
		`SELECT date_time, station_reference, parameter, value FROM %q WHERE station_reference = ?`, q.Table)
	args := []any{q.Station}
	if q.Parameter != domain.ParameterAny {
		query += ` AND parameter = ?`
		args = append(args, string(q.Parameter))
	}
	if q.Range != nil {
		query += ` AND date_time >= ? AND date_time <= ?`
		args = append(args,
			q.Range.Start.UTC().Format(time.RFC3339),
			q.Range.End.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY date_time`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	var series []domain.Reading
	for rows.Next() {
		var (
			dt, station, param string
			value              float64
		)
		if err := rows.Scan(&dt, &station, &param, &value); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, dt)
		if err != nil {
			return nil, fmt.Errorf("stored dateTime %q: %w", dt, err)
		}
		series = append(series, domain.Reading{
			StationReference: station,
			Time:             ts,
			Parameter:        domain.Parameter(param),
			Value:            value,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series: %w", err)
	}
	return series, nil
}

// TableInfo summarizes one archive table.
type TableInfo struct {
	Table    string
	Rows     int64
	Stations int64
	Earliest time.Time
	Latest   time.Time
}

// Info reports row and station counts plus the covered time span. An empty
// table reports zero counts and zero times.
func (s *Store) Info(ctx context.Context, table string) (TableInfo, error) {
	if err := validateTableName(table); err != nil {
		return TableInfo{}, err
	}

	row := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT COUNT(*), COUNT(DISTINCT station_reference),
			COALESCE(MIN(date_time), ''), COALESCE(MAX(date_time), '')
		FROM %q`, table))

	info := TableInfo{Table: table}
	var earliest, latest string
	if err := row.Scan(&info.Rows, &info.Stations, &earliest, &latest); err != nil {
		return TableInfo{}, fmt.Errorf("inspect table %s: %w", table, err)
	}
	if earliest != "" {
		ts, err := time.Parse(time.RFC3339, earliest)
		if err != nil {
			return TableInfo{}, fmt.Errorf("stored dateTime %q: %w", earliest, err)
		}
		info.Earliest = ts
	}
	if latest != "" {
		ts, err := time.Parse(time.RFC3339, latest)
		if err != nil {
			return TableInfo{}, fmt.Errorf("stored dateTime %q: %w", latest, err)
		}
		info.Latest = ts
	}
	return info, nil
}

// Tables lists the user tables present in the archive.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

// Drop removes a table and everything in it.
func (s *Store) Drop(ctx context.Context, table string) error {
	if err := validateTableName(table); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, table)); err != nil {
		return fmt.Errorf("drop table %s: %w", table, err)
	}
	s.logger.Info("dropped archive table", "table", table)
	return nil
}

func validateTableName(name string) error {
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("invalid table name %q: letters, digits and underscores only, not starting with a digit", name)
	}
	return nil
}

// TableWriter binds a Store to one table, giving the ingest pipeline a
// loader that does not need to carry the table name around.
type TableWriter struct {
	store *Store
	table string
}

// NewTableWriter validates the table name once up front.
func NewTableWriter(store *Store, table string) (*TableWriter, error) {
	if err := validateTableName(table); err != nil {
		return nil, err
	}
	return &TableWriter{store: store, table: table}, nil
}

// LoadBatch writes one batch of readings to the writer's table.
func (w *TableWriter) LoadBatch(ctx context.Context, readings []domain.Reading) error {
	return w.store.IngestBatch(ctx, w.table, readings)
}
