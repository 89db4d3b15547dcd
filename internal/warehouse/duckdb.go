// Package warehouse wraps the embedded DuckDB connection used to ingest the
// seller's raw CSV exports.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// DuckDB is a thin database/sql wrapper around an embedded DuckDB database.
type DuckDB struct {
	DB     *sql.DB
	Path   string
	Logger *slog.Logger
}

// CSVOptions controls how a delimited file is read.
type CSVOptions struct {
	// Delimiter separating fields (default ";").
	Delimiter string
	// Header reports whether the first line holds column names (default true).
	Header *bool
}

// New creates an unconnected DuckDB wrapper.
func New(logger *slog.Logger) *DuckDB {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDB{Logger: logger}
}

// Connect opens the database. Use ":memory:" (or "") for an in-memory database.
func (d *DuckDB) Connect(ctx context.Context, path string) error {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	d.DB = db
	d.Path = path
	d.Logger.Debug("connected to duckdb", "path", path)
	return nil
}

// Close closes the database connection.
func (d *DuckDB) Close() error {
	if d.DB != nil {
		d.Logger.Debug("closing duckdb connection")
		return d.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (d *DuckDB) IsConnected() bool {
	return d.DB != nil
}

// Exec executes a statement that doesn't return rows.
func (d *DuckDB) Exec(ctx context.Context, query string, args ...any) error {
	if d.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if _, err := d.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a statement that returns rows. The caller closes the rows.
func (d *DuckDB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if d.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return rows, nil
}

// LoadCSV loads a delimited file into table, replacing it if it exists.
// Every column is read as VARCHAR; typing happens in the cleaning step.
func (d *DuckDB) LoadCSV(ctx context.Context, table, filePath string, opts CSVOptions) error {
	if d.DB == nil {
		return fmt.Errorf("database connection not established")
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	delim := opts.Delimiter
	if delim == "" {
		delim = ";"
	}
	header := true
	if opts.Header != nil {
		header = *opts.Header
	}

	//nolint:gosec // table names are internal constants, path and delimiter are quoted
	query := fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv(%s, delim=%s, header=%t, all_varchar=true)",
		QuoteIdent(table),
		quoteLiteral(absPath),
		quoteLiteral(delim),
		header,
	)

	d.Logger.Debug("loading csv", "table", table, "path", absPath, "delimiter", delim)

	if err := d.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to load CSV %s: %w", filePath, err)
	}
	return nil
}

// Columns returns the column names of table in ordinal order.
func (d *DuckDB) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := d.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = 'main' AND table_name = ?
		ORDER BY ordinal_position
	`, table)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return cols, nil
}

// ReadStrings reads the given columns of table as nullable strings, in
// insertion order.
func (d *DuckDB) ReadStrings(ctx context.Context, table string, columns []string) ([][]sql.NullString, error) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = QuoteIdent(c) + "::VARCHAR"
	}

	//nolint:gosec // identifiers are quoted
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), QuoteIdent(table))
	rows, err := d.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out [][]sql.NullString
	for rows.Next() {
		row := make([]sql.NullString, len(columns))
		ptrs := make([]any, len(columns))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", table, err)
	}
	return out, nil
}

// QuoteIdent quotes an SQL identifier.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
