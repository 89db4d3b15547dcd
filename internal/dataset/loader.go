package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Harley062/projeto-IA-Adega/internal/warehouse"
)

// Default file names inside the data directory.
const (
	DefaultCustomersFile = "Cliente.csv"
	DefaultProductsFile  = "produtos.csv"
	DefaultPurchasesFile = "Compras.csv"
	DefaultDelimiter     = ";"
)

// Config holds loader configuration.
type Config struct {
	// DataDir is the directory holding the three source files.
	DataDir       string
	CustomersFile string
	ProductsFile  string
	PurchasesFile string
	// Delimiter separating fields in every file.
	Delimiter string
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Loader reads the source files through an in-memory DuckDB database.
type Loader struct {
	cfg    Config
	logger *slog.Logger
}

// NewLoader creates a loader, filling unset file names with the defaults.
func NewLoader(cfg Config) *Loader {
	if cfg.CustomersFile == "" {
		cfg.CustomersFile = DefaultCustomersFile
	}
	if cfg.ProductsFile == "" {
		cfg.ProductsFile = DefaultProductsFile
	}
	if cfg.PurchasesFile == "" {
		cfg.PurchasesFile = DefaultPurchasesFile
	}
	if cfg.Delimiter == "" {
		cfg.Delimiter = DefaultDelimiter
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{cfg: cfg, logger: logger}
}

type source struct {
	table   string
	path    string
	columns []string
}

func (l *Loader) sources() []source {
	return []source{
		{table: "clientes", path: filepath.Join(l.cfg.DataDir, l.cfg.CustomersFile), columns: CustomerColumns},
		{table: "produtos", path: filepath.Join(l.cfg.DataDir, l.cfg.ProductsFile), columns: ProductColumns},
		{table: "compras", path: filepath.Join(l.cfg.DataDir, l.cfg.PurchasesFile), columns: PurchaseColumns},
	}
}

// Stage loads the three files into an in-memory DuckDB database as the
// tables clientes, produtos and compras. The caller closes the database.
// All absent files are reported together in a *MissingFileError.
func (l *Loader) Stage(ctx context.Context) (*warehouse.DuckDB, error) {
	var missing []string
	for _, src := range l.sources() {
		if _, err := os.Stat(src.path); errors.Is(err, os.ErrNotExist) {
			missing = append(missing, src.path)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingFileError{Files: missing}
	}

	db := warehouse.New(l.logger)
	if err := db.Connect(ctx, ":memory:"); err != nil {
		return nil, err
	}

	l.logger.Info("loading data", "data_dir", l.cfg.DataDir)
	for _, src := range l.sources() {
		if err := db.LoadCSV(ctx, src.table, src.path, warehouse.CSVOptions{Delimiter: l.cfg.Delimiter}); err != nil {
			_ = db.Close()
			return nil, &MalformedInputError{File: src.path, Err: err}
		}
	}
	return db, nil
}

// Load reads customers, products and purchases.
func (l *Loader) Load(ctx context.Context) (*Tables, error) {
	db, err := l.Stage(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	sources := l.sources()
	tables := make([]*Table, len(sources))
	for i, src := range sources {
		t, err := l.loadOne(ctx, db, src)
		if err != nil {
			return nil, err
		}
		tables[i] = t
		l.logger.Info("loaded table", "table", src.table, "rows", t.Len())
	}

	return &Tables{Customers: tables[0], Products: tables[1], Purchases: tables[2]}, nil
}

func (l *Loader) loadOne(ctx context.Context, db *warehouse.DuckDB, src source) (*Table, error) {
	cols, err := db.Columns(ctx, src.table)
	if err != nil {
		return nil, &MalformedInputError{File: src.path, Err: err}
	}

	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[c] = true
	}
	var absent []string
	for _, c := range src.columns {
		if !have[c] {
			absent = append(absent, c)
		}
	}
	if len(absent) > 0 {
		return nil, &MalformedInputError{File: src.path, Missing: absent}
	}

	rows, err := db.ReadStrings(ctx, src.table, src.columns)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", src.path, err)
	}

	return &Table{Name: src.table, Columns: append([]string(nil), src.columns...), Rows: rows}, nil
}
