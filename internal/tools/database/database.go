// Package database implements a built-in Tool that runs SQL statements
// against a configured database through database/sql, restricted to an
// allow-listed set of tables and, in read-only mode, to SELECT statements.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/nexusrun/agentcore/internal/agent"
)

// Name is the tool name registered with an agent.
const Name = "database"

// dangerousSuffixes are SQL constructs that can exfiltrate data or touch
// the filesystem even inside an otherwise-whitelisted statement.
var dangerousSuffixes = []string{
	"into outfile",
	"load_file",
	"into dumpfile",
}

// Config controls the database a Tool operates against.
type Config struct {
	// DSN selects the driver by scheme: "postgres://..." uses lib/pq,
	// anything else is opened with the sqlite driver.
	DSN string
	// AllowedTables restricts which table names may appear in a query. A
	// nil/empty slice means no table is allowed (fail closed).
	AllowedTables []string
	// ReadOnly blocks every statement that isn't a SELECT.
	ReadOnly bool
}

func driverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

// Tool is the database Tool returned by New. The caller owns the
// io.Closer-equivalent lifecycle of its connection via Close.
type Tool struct {
	agent.Tool
	db *sql.DB
}

// Close releases the underlying database connection.
func (t *Tool) Close() error { return t.db.Close() }

// New opens the configured database and builds the Tool.
func New(cfg Config) (*Tool, error) {
	db, err := sql.Open(driverFor(cfg.DSN), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	inner := agent.NewFuncTool(Name,
		"Runs a SQL query against an allow-listed set of tables.",
		agent.InputSchema{
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "A SQL statement to execute",
				},
			},
			Required: []string{"query"},
		},
		handler(db, cfg),
	)
	return &Tool{Tool: inner, db: db}, nil
}

func handler(db *sql.DB, cfg Config) agent.Handler {
	return func(ctx context.Context, input map[string]any) (any, error) {
		query, _ := input["query"].(string)
		if strings.TrimSpace(query) == "" {
			return nil, fmt.Errorf("query must not be empty")
		}
		if err := validate(query, cfg); err != nil {
			return nil, err
		}

		normalized := strings.ToLower(strings.TrimSpace(query))
		if strings.HasPrefix(normalized, "select") {
			return runQuery(ctx, db, query)
		}
		return runExec(ctx, db, query)
	}
}

// validate enforces the read-only and allowed-table restrictions. It is a
// conservative lexical check, not a SQL parser: it only ever rejects
// queries, never rewrites them.
func validate(query string, cfg Config) error {
	lower := strings.ToLower(query)

	for _, suffix := range dangerousSuffixes {
		if strings.Contains(lower, suffix) {
			return fmt.Errorf("query contains a disallowed construct: %q", suffix)
		}
	}

	trimmed := strings.TrimSpace(lower)
	if cfg.ReadOnly && !strings.HasPrefix(trimmed, "select") {
		return fmt.Errorf("database tool is read-only: only SELECT statements are allowed")
	}

	if len(cfg.AllowedTables) == 0 {
		return fmt.Errorf("no allowed tables configured")
	}
	allowed := make(map[string]bool, len(cfg.AllowedTables))
	for _, t := range cfg.AllowedTables {
		allowed[strings.ToLower(t)] = true
	}
	if !referencesOnlyAllowedTables(lower, allowed) {
		return fmt.Errorf("query references a table outside the allowed list")
	}
	return nil
}

// referencesOnlyAllowedTables checks that every table name following FROM,
// JOIN, INTO, or UPDATE is present in allowed. It is intentionally
// conservative: a query with no recognizable table reference is rejected.
func referencesOnlyAllowedTables(lowerQuery string, allowed map[string]bool) bool {
	tokens := strings.Fields(lowerQuery)
	found := false
	for i, tok := range tokens {
		switch tok {
		case "from", "join", "into", "update":
			if i+1 >= len(tokens) {
				continue
			}
			name := strings.Trim(tokens[i+1], "(),;\"'`")
			if name == "" {
				continue
			}
			found = true
			if !allowed[name] {
				return false
			}
		}
	}
	return found
}

func runQuery(ctx context.Context, db *sql.DB, query string) (any, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return results, nil
}

func runExec(ctx context.Context, db *sql.DB, query string) (any, error) {
	res, err := db.ExecContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("exec failed: %w", err)
	}
	affected, _ := res.RowsAffected()
	return fmt.Sprintf("%d row(s) affected", affected), nil
}
