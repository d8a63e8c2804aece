// Package pgload loads decoded RETS records into a PostgreSQL database
// over a pgx connection pool. It infers a table definition from the typed
// values the decoder produced and performs batched inserts inside a
// transaction, so a failed page never leaves a partial load behind.
package pgload

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"retsync/cli/internal/response"
)

// Loader writes decoded records into PostgreSQL.
type Loader struct {
	// Pool is the PostgreSQL connection pool
	Pool *pgxpool.Pool
}

// Connect opens a pgx pool for the given (already normalized) DSN and
// verifies connectivity with a ping.
func Connect(ctx context.Context, dsn string) (*Loader, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Loader{Pool: pool}, nil
}

// Close releases the underlying pool.
func (l *Loader) Close() {
	if l.Pool != nil {
		l.Pool.Close()
	}
}

// Columns returns the sorted union of field names across the given rows.
// Sorting keeps the DDL and insert statements stable between runs.
func Columns(rows []response.Row) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for name := range row {
			seen[name] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for name := range seen {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}

// columnType maps a decoded field value to a PostgreSQL column type.
// The decoder yields int64, float64, time.Time, string or nil.
func columnType(v any) string {
	switch v.(type) {
	case int64:
		return "BIGINT"
	case float64:
		return "DOUBLE PRECISION"
	case time.Time:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// inferTypes picks a column type per field by scanning rows for the first
// non-nil value. Columns that are nil in every row fall back to TEXT.
func inferTypes(columns []string, rows []response.Row) map[string]string {
	types := make(map[string]string, len(columns))
	for _, col := range columns {
		types[col] = "TEXT"
		for _, row := range rows {
			if v, ok := row[col]; ok && v != nil {
				types[col] = columnType(v)
				break
			}
		}
	}
	return types
}

// quoteIdent quotes a PostgreSQL identifier. RETS system names are plain
// alphanumerics in practice, but MLSes have been known to ship reserved
// words like "desc" as field names.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// createTableSQL renders a CREATE TABLE IF NOT EXISTS statement for the
// given columns and inferred types.
func createTableSQL(table string, columns []string, types map[string]string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(quoteIdent(table))
	b.WriteString(" (")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(col))
		b.WriteString(" ")
		b.WriteString(types[col])
	}
	b.WriteString(")")
	return b.String()
}

// insertSQL renders a parameterized INSERT statement for the given columns.
func insertSQL(table string, columns []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quoteIdent(table))
	b.WriteString(" (")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(col))
	}
	b.WriteString(") VALUES (")
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i+1)
	}
	b.WriteString(")")
	return b.String()
}

// EnsureTable creates the destination table if it does not exist, with
// column types inferred from the sample rows.
func (l *Loader) EnsureTable(ctx context.Context, table string, rows []response.Row) error {
	columns := Columns(rows)
	if len(columns) == 0 {
		return fmt.Errorf("no columns to create table %q from", table)
	}

	conn, err := l.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	ddl := createTableSQL(table, columns, inferTypes(columns, rows))
	if _, err := conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %q: %w", table, err)
	}
	return nil
}

// InsertRows loads the given rows into the table inside a single
// transaction using a pgx batch. Nil rows, which the decoder emits for
// records whose field count did not match the COLUMNS header, carry no data
// and are skipped. It returns the number of rows written.
func (l *Loader) InsertRows(ctx context.Context, table string, rows []response.Row) (int64, error) {
	rows = compactRows(rows)
	if len(rows) == 0 {
		return 0, nil
	}
	columns := Columns(rows)

	conn, err := l.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // no-op after commit

	stmt := insertSQL(table, columns)
	batch := &pgx.Batch{}
	for _, row := range rows {
		args := make([]any, len(columns))
		for i, col := range columns {
			args[i] = row[col]
		}
		batch.Queue(stmt, args...)
	}

	br := tx.SendBatch(ctx, batch)
	var written int64
	for range rows {
		ct, err := br.Exec()
		if err != nil {
			br.Close()
			return written, fmt.Errorf("insert into %q: %w", table, err)
		}
		written += ct.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return written, err
	}

	if err := tx.Commit(ctx); err != nil {
		return written, fmt.Errorf("commit failed: %w", err)
	}
	return written, nil
}

// compactRows drops nil rows so unmappable records are never queued as
// all-NULL inserts.
func compactRows(rows []response.Row) []response.Row {
	kept := make([]response.Row, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			kept = append(kept, row)
		}
	}
	return kept
}

// TruncateTable empties the destination table before a full resync.
func (l *Loader) TruncateTable(ctx context.Context, table string) error {
	conn, err := l.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE "+quoteIdent(table)); err != nil {
		return fmt.Errorf("truncate table %q: %w", table, err)
	}
	return nil
}
