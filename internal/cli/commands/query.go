package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/Harley062/projeto-IA-Adega/internal/cli/config"
	"github.com/Harley062/projeto-IA-Adega/internal/cli/output"
	"github.com/Harley062/projeto-IA-Adega/internal/dataset"
	"github.com/Harley062/projeto-IA-Adega/internal/warehouse"
)

// stagedTables are the tables the query command exposes.
var stagedTables = []string{"clientes", "produtos", "compras"}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Explore the raw data with SQL",
		Long: `Load the customer, product and purchase files into an in-memory DuckDB
database as the tables clientes, produtos and compras, and run SQL on them.

With a statement, run it once and print the result. Without one, start an
interactive shell.`,
		Example: `  # Top cities by revenue
  adega query "SELECT cidade, sum(valor) AS total FROM compras JOIN clientes USING (cliente_id) GROUP BY 1 ORDER BY 2 DESC"

  # Interactive shell
  adega query`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.GetConfig(ctx)
			dc := cfg.Dataset()
			dc.Logger = config.GetLogger(ctx)

			db, err := dataset.NewLoader(dc).Stage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			r := output.FromContext(ctx)
			if len(args) == 1 {
				return runQuery(ctx, r, db, args[0])
			}
			return runQueryREPL(cmd, r, db, filepath.Join(cfg.OutputDir, "query_history"))
		},
	}
	return cmd
}

// runQuery executes one statement and renders the result.
func runQuery(ctx context.Context, r *output.Renderer, db *warehouse.DuckDB, query string) error {
	query = strings.TrimSuffix(strings.TrimSpace(query), ";")
	rows, err := db.Query(ctx, query)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	cols, data, err := collectRows(rows)
	if err != nil {
		return err
	}

	if r.Mode() == output.ModeJSON {
		objs := make([]map[string]any, len(data))
		for i, row := range data {
			obj := make(map[string]any, len(cols))
			for j, c := range cols {
				obj[c] = row[j]
			}
			objs[i] = obj
		}
		return r.JSON(objs)
	}

	r.Table(cols, data)
	r.Line("%s", r.Muted(fmt.Sprintf("(%d rows)", len(data))))
	return nil
}

func collectRows(rows *sql.Rows) ([]string, [][]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var data [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		data = append(data, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return cols, data, nil
}

func runQueryREPL(cmd *cobra.Command, r *output.Renderer, db *warehouse.DuckDB, historyFile string) error {
	ctx := cmd.Context()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "adega> ",
		HistoryFile:     historyFile,
		AutoComplete:    newTableCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "adega SQL shell (tables: %s)\n", strings.Join(stagedTables, ", "))
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	// Statements may span lines and end with a semicolon.
	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt("adega> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := handleDotCommand(ctx, cmd, r, db, line); quit {
				break
			}
			continue
		}

		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString(" ")
			rl.SetPrompt("   ...> ")
			continue
		}
		rl.SetPrompt("adega> ")

		query := buf.String()
		buf.Reset()
		if err := runQuery(ctx, r, db, query); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

// handleDotCommand runs a shell command and reports whether to quit.
func handleDotCommand(ctx context.Context, cmd *cobra.Command, r *output.Renderer, db *warehouse.DuckDB, line string) bool {
	parts := strings.Fields(line)

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), `
Commands:
  .help           Show this help message
  .tables         List the loaded tables
  .schema <name>  Show the columns of a table
  .quit / .exit   Exit the shell

SQL statements must end with a semicolon (;).`)

	case ".tables":
		rows := make([][]any, len(stagedTables))
		for i, t := range stagedTables {
			rows[i] = []any{t}
		}
		r.Table([]string{"Table"}, rows)

	case ".schema":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Usage: .schema <table>")
			return false
		}
		cols, err := db.Columns(ctx, parts[1])
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return false
		}
		rows := make([][]any, len(cols))
		for i, c := range cols {
			rows[i] = []any{c}
		}
		r.Table([]string{"Column"}, rows)

	default:
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Unknown command: %s (type .help for commands)\n", parts[0])
	}
	return false
}

func newTableCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(stagedTables)+4)
	for _, t := range stagedTables {
		items = append(items, readline.PcItem(t))
	}
	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema", readline.PcItem("clientes"), readline.PcItem("produtos"), readline.PcItem("compras")),
		readline.PcItem(".quit"),
	)
	return readline.NewPrefixCompleter(items...)
}
