// Package store persists cleaned tables to PostgreSQL.
//
// Each save creates the target table on first use, bulk-loads the rows with
// the COPY protocol and records the run in a ledger table, all in one
// transaction. Column types follow the table's element kinds:
//
//	text  -> TEXT
//	float -> DOUBLE PRECISION (NaN stored as NULL)
//	int   -> BIGINT
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"fortio.org/safecast"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/JonMunkholm/unidata/internal/config"
	"github.com/JonMunkholm/unidata/internal/logging"
	"github.com/JonMunkholm/unidata/internal/table"
)

// RunsTable is the ledger of every saved run.
const RunsTable = "unidata_runs"

// runIDColumn is added to every data table to tie rows back to their run.
const runIDColumn = "run_id"

// ErrInvalidTableName is returned when a target name normalizes to nothing.
var ErrInvalidTableName = errors.New("invalid table name")

// ErrDisabled is returned by callers that were asked to persist a table
// while no database is configured.
var ErrDisabled = errors.New("database not configured")

// DBTX is the subset of pgx used inside a save transaction.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// TxStarter begins transactions. Satisfied by *pgxpool.Pool and *pgx.Conn.
type TxStarter interface {
	Begin(context.Context) (pgx.Tx, error)
}

// Store saves tables through a connection pool.
type Store struct {
	db TxStarter
}

// New wraps an existing pool or connection.
func New(db TxStarter) *Store {
	return &Store{db: db}
}

// Open connects a pool using the database settings and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, *pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}

	if poolConfig.MaxConns, err = safecast.Conv[int32](cfg.MaxConns); err != nil {
		return nil, nil, fmt.Errorf("DB_MAX_CONNS: %w", err)
	}
	if poolConfig.MinConns, err = safecast.Conv[int32](cfg.MinConns); err != nil {
		return nil, nil, fmt.Errorf("DB_MIN_CONNS: %w", err)
	}
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	return New(pool), pool, nil
}

// Run describes one saved table.
type Run struct {
	ID        uuid.UUID
	Table     string // Target table name after normalization
	Source    string // File name or other label of the input
	Rows      int64
	CreatedAt time.Time
}

// Save writes t into the table named name (normalized with TableName) and
// records the run. Returns the run with the number of rows copied.
func (s *Store) Save(ctx context.Context, name, source string, runID uuid.UUID, t *table.Table) (Run, error) {
	target, err := TableName(name)
	if err != nil {
		return Run{}, err
	}

	run := Run{ID: runID, Table: target, Source: source, CreatedAt: time.Now().UTC()}
	logger := logging.WithFields(ctx, "run_id", runID.String(), "table", target)

	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		n, err := saveTx(ctx, tx, target, runID, t)
		if err != nil {
			return err
		}
		run.Rows = n
		return recordRun(ctx, tx, run)
	})
	if err != nil {
		logger.Error("save failed", "error", err)
		return Run{}, fmt.Errorf("save %s: %w", target, err)
	}

	logger.Info("table saved", "rows", run.Rows, "columns", t.NumColumns())
	return run, nil
}

func saveTx(ctx context.Context, db DBTX, target string, runID uuid.UUID, t *table.Table) (int64, error) {
	cols := ColumnNames(t)

	if _, err := db.Exec(ctx, CreateTableSQL(target, cols, t)); err != nil {
		return 0, fmt.Errorf("create table: %w", err)
	}

	copyCols := append(append([]string(nil), cols...), runIDColumn)
	n, err := db.CopyFrom(ctx, pgx.Identifier{target}, copyCols, pgx.CopyFromRows(CopyRows(t, runID)))
	if err != nil {
		return 0, fmt.Errorf("copy rows: %w", err)
	}
	return n, nil
}

func recordRun(ctx context.Context, db DBTX, run Run) error {
	if _, err := db.Exec(ctx, createRunsSQL); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	_, err := db.Exec(ctx, insertRunSQL,
		pgtype.UUID{Bytes: run.ID, Valid: true},
		run.Table,
		run.Source,
		run.Rows,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

var createRunsSQL = "CREATE TABLE IF NOT EXISTS " + pgx.Identifier{RunsTable}.Sanitize() + ` (
	run_id UUID PRIMARY KEY,
	target_table TEXT NOT NULL,
	source TEXT NOT NULL,
	row_count BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

var insertRunSQL = "INSERT INTO " + pgx.Identifier{RunsTable}.Sanitize() +
	" (run_id, target_table, source, row_count, created_at) VALUES ($1, $2, $3, $4, $5)"

// CreateTableSQL returns the CREATE TABLE IF NOT EXISTS statement for t,
// using the database column names in cols (see ColumnNames).
func CreateTableSQL(target string, cols []string, t *table.Table) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(pgx.Identifier{target}.Sanitize())
	b.WriteString(" (")
	for i, name := range cols {
		b.WriteString(pgx.Identifier{name}.Sanitize())
		b.WriteByte(' ')
		b.WriteString(sqlType(t.ColumnAt(i).Kind()))
		b.WriteString(", ")
	}
	b.WriteString(pgx.Identifier{runIDColumn}.Sanitize())
	b.WriteString(" UUID NOT NULL)")
	return b.String()
}

// CopyRows converts t into COPY rows, appending runID to each row.
func CopyRows(t *table.Table, runID uuid.UUID) [][]any {
	id := pgtype.UUID{Bytes: runID, Valid: true}
	rows := make([][]any, t.NumRows())
	for r := range rows {
		row := make([]any, t.NumColumns()+1)
		for i := 0; i < t.NumColumns(); i++ {
			row[i] = copyValue(t.ColumnAt(i), r)
		}
		row[len(row)-1] = id
		rows[r] = row
	}
	return rows
}

func copyValue(c *table.Column, row int) any {
	switch c.Kind() {
	case table.KindFloat:
		v := c.Floats()[row]
		if math.IsNaN(v) {
			return nil
		}
		return v
	case table.KindInt:
		return c.Ints()[row]
	default:
		return c.Texts()[row]
	}
}

func sqlType(k table.Kind) string {
	switch k {
	case table.KindFloat:
		return "DOUBLE PRECISION"
	case table.KindInt:
		return "BIGINT"
	default:
		return "TEXT"
	}
}

var nonIdentChars = regexp.MustCompile(`[^a-z0-9]+`)

// toDBColumnName lowercases name, drops diacritics ("Café" becomes "cafe")
// and collapses every run of characters other than ASCII letters and digits
// into a single underscore.
func toDBColumnName(name string) string {
	folded, _, err := transform.String(stripMarks(), name)
	if err != nil {
		folded = name
	}
	return strings.Trim(nonIdentChars.ReplaceAllString(strings.ToLower(folded), "_"), "_")
}

// stripMarks returns a fresh transformer; transform.Chain is not safe for
// concurrent use.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// TableName normalizes a target table name the same way as column names.
func TableName(name string) (string, error) {
	n := toDBColumnName(name)
	if n == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	return n, nil
}

// ColumnNames returns database column names for t in column order. Names are
// normalized with toDBColumnName; collisions (including with run_id) get a
// numeric suffix, and names that normalize to nothing become col_<n>.
func ColumnNames(t *table.Table) []string {
	used := map[string]bool{runIDColumn: true}
	names := make([]string, t.NumColumns())
	for i, raw := range t.Names() {
		base := toDBColumnName(raw)
		if base == "" {
			base = "col_" + strconv.Itoa(i+1)
		}
		name := base
		for n := 2; used[name]; n++ {
			name = base + "_" + strconv.Itoa(n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// ensure *pgxpool.Pool satisfies the interfaces used here.
var (
	_ TxStarter = (*pgxpool.Pool)(nil)
	_ DBTX      = (*pgxpool.Pool)(nil)
)
