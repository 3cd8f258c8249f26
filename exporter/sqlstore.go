package exporter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/giygas/rug-formats/interfaces"
	"github.com/giygas/rug-formats/logging"
	"github.com/giygas/rug-formats/metrics"
	"github.com/giygas/rug-formats/rugparser/entities"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

var _ interfaces.FormatStore = (*SQLStore)(nil)

// ErrUnknownDialect is returned for an unsupported SQL backend name
var ErrUnknownDialect = errors.New("unknown SQL dialect")

var librefRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,7}$`)

// dialect holds the SQL differences between the supported backends
type dialect struct {
	name   string
	driver string
	// schemas maps the libref to a schema; otherwise it becomes a table prefix
	schemas     bool
	placeholder func(i int) string
}

var dialects = map[string]dialect{
	"postgres": {
		name:        "postgres",
		driver:      "pgx",
		schemas:     true,
		placeholder: func(i int) string { return "$" + strconv.Itoa(i) },
	},
	"sqlite": {
		name:        "sqlite",
		driver:      "sqlite",
		placeholder: func(int) string { return "?" },
	},
}

// SQLStore keeps format tables in a SQL database, one table per format.
// Postgres tables live in a schema named after the libref; SQLite tables are
// prefixed with it.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	libref  string
}

// OpenSQLStore opens a database for the named dialect ("postgres" or "sqlite")
func OpenSQLStore(ctx context.Context, dialectName, dsn, libref string) (*SQLStore, error) {
	d, ok := dialects[dialectName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDialect, dialectName)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", d.name, err)
	}

	return NewSQLStore(db, dialectName, libref)
}

// NewSQLStore wraps an open database
func NewSQLStore(db *sql.DB, dialectName, libref string) (*SQLStore, error) {
	d, ok := dialects[dialectName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDialect, dialectName)
	}
	if !librefRegex.MatchString(libref) {
		return nil, fmt.Errorf("invalid libref %q", libref)
	}
	return &SQLStore{db: db, dialect: d, libref: libref}, nil
}

// Name implements FormatStore
func (s *SQLStore) Name() string {
	return s.dialect.name
}

// qualified returns the quoted table name for a format
func (s *SQLStore) qualified(table string) string {
	if s.dialect.schemas {
		return fmt.Sprintf(`"%s"."%s"`, s.libref, table)
	}
	return fmt.Sprintf(`"%s_%s"`, s.libref, table)
}

// WriteFormat replaces the format table in a single transaction
func (s *SQLStore) WriteFormat(ctx context.Context, table entities.FormatTable) error {
	if !tableNameRegex.MatchString(table.Name) {
		return fmt.Errorf("invalid format table name %q", table.Name)
	}
	name := s.qualified(table.Name)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logging.Warn("Failed to roll back format table write", "table", name, "error", err)
		}
	}()

	if s.dialect.schemas {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, s.libref)); err != nil {
			return fmt.Errorf("failed to create schema %s: %w", s.libref, err)
		}
	}

	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	"start" TEXT NOT NULL,
	"label" TEXT NOT NULL,
	"fmtname" TEXT NOT NULL,
	"type" TEXT NOT NULL
)`, name)
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, name)); err != nil {
		return fmt.Errorf("failed to clear table %s: %w", name, err)
	}

	p := s.dialect.placeholder
	insert := fmt.Sprintf(`INSERT INTO %s ("start", "label", "fmtname", "type") VALUES (%s, %s, %s, %s)`,
		name, p(1), p(2), p(3), p(4))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", name, err)
	}
	defer stmt.Close()

	for i, r := range table.Rows {
		if _, err := stmt.ExecContext(ctx, r.Start, r.Label, r.FmtName, r.Type); err != nil {
			return fmt.Errorf("failed to insert row %d into %s: %w", i, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}

	metrics.FormatRowsWritten.WithLabelValues(s.Name(), table.Name).Add(float64(len(table.Rows)))
	logging.Info("Format table written", "store", s.Name(), "table", name, "rows", len(table.Rows))
	return nil
}

// ReadFormat returns the rows currently stored for a format, in storage order.
// The pipeline never reads back; it exists to verify what a store published.
func (s *SQLStore) ReadFormat(ctx context.Context, tableName string) (entities.FormatTable, error) {
	if !tableNameRegex.MatchString(tableName) {
		return entities.FormatTable{}, fmt.Errorf("invalid format table name %q", tableName)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT "start", "label", "fmtname", "type" FROM %s`, s.qualified(tableName)))
	if err != nil {
		return entities.FormatTable{}, fmt.Errorf("failed to read %s: %w", tableName, err)
	}
	defer rows.Close()

	table := entities.FormatTable{Name: tableName}
	for rows.Next() {
		var r entities.FormatRow
		if err := rows.Scan(&r.Start, &r.Label, &r.FmtName, &r.Type); err != nil {
			return entities.FormatTable{}, fmt.Errorf("failed to scan %s: %w", tableName, err)
		}
		table.Rows = append(table.Rows, r)
	}
	return table, rows.Err()
}

// Close releases the database connection pool
func (s *SQLStore) Close() error {
	return s.db.Close()
}
