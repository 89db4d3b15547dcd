package predict

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Harley062/projeto-IA-Adega/internal/warehouse"
)

// ReadBatchFile reads a delimited batch file, one customer per row, into
// records keyed by header. Empty cells are omitted from the record.
func ReadBatchFile(ctx context.Context, path, delimiter string, logger *slog.Logger) ([]map[string]any, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}

	db := warehouse.New(logger)
	if err := db.Connect(ctx, ":memory:"); err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	const table = "batch"
	if err := db.LoadCSV(ctx, table, path, warehouse.CSVOptions{Delimiter: delimiter}); err != nil {
		return nil, fmt.Errorf("failed to read batch file %s: %w", path, err)
	}
	cols, err := db.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	rows, err := db.ReadStrings(ctx, table, cols)
	if err != nil {
		return nil, err
	}

	records := make([]map[string]any, len(rows))
	for i, row := range rows {
		rec := make(map[string]any, len(cols))
		for j, c := range cols {
			if row[j].Valid {
				rec[c] = row[j].String
			}
		}
		records[i] = rec
	}
	return records, nil
}
