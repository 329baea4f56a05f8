package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cybertec-postgresql/sqlconsole/internal/errors"
	"github.com/cybertec-postgresql/sqlconsole/internal/logger"
	"github.com/cybertec-postgresql/sqlconsole/internal/sqlcomment"
	"github.com/cybertec-postgresql/sqlconsole/pkg/types"
	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLExecutor executes SQL through database/sql. It serves the SQLite and
// MySQL data sources.
type SQLExecutor struct {
	db   *sql.DB
	name string
	kind Kind
}

// OpenSQL opens and pings a database/sql backed data source
func OpenSQL(ctx context.Context, ds types.DataSource, kind Kind) (*SQLExecutor, error) {
	var db *sql.DB
	switch kind {
	case KindSQLite:
		var err error
		db, err = sql.Open("sqlite", ds.DSN)
		if err != nil {
			return nil, errors.NewConnectionError(ds.Name, err.Error(), "")
		}
		// One connection: each new connection to ":memory:" would see an
		// empty database, and SQLite serialises writers anyway.
		db.SetMaxOpenConns(1)
	case KindMySQL:
		cfg, err := mysql.ParseDSN(ds.DSN)
		if err != nil {
			return nil, errors.NewConnectionError(ds.Name,
				fmt.Sprintf("invalid connection configuration: %v", err),
				"Use the go-sql-driver format user:password@tcp(host:3306)/dbname")
		}
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, errors.NewConnectionError(ds.Name, err.Error(), "")
		}
		db = sql.OpenDB(connector)
		db.SetMaxOpenConns(4)
		db.SetConnMaxLifetime(5 * time.Minute)
	default:
		return nil, fmt.Errorf("data source %s: kind %s is not served by database/sql", ds.Name, kind)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.NewConnectionError(ds.Name, err.Error(),
			"Verify the database is running and accessible with the provided connection string")
	}
	logger.Debug("data source %s: connected (%s)", ds.Name, kind)

	return &SQLExecutor{db: db, name: ds.Name, kind: kind}, nil
}

// Kind implements Executor
func (e *SQLExecutor) Kind() Kind {
	return e.kind
}

// DB returns the underlying handle
func (e *SQLExecutor) DB() *sql.DB {
	return e.db
}

// Execute implements Executor. The text is split into statements at
// semicolons outside literals; whether a statement returns rows is decided
// by IsQuery.
func (e *SQLExecutor) Execute(ctx context.Context, sqlText string, opts ExecOptions) ([]*types.Result, error) {
	statements := sqlcomment.Split(sqlText)
	if len(statements) == 0 {
		return nil, ErrNoStatements
	}

	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, executionError(ctx, e.name, err)
	}

	results := make([]*types.Result, 0, len(statements))
	for i, stmt := range statements {
		start := time.Now()
		var result *types.Result
		if IsQuery(stmt) {
			result, err = e.query(ctx, tx, stmt, opts.MaxRows)
		} else {
			result, err = e.exec(ctx, tx, stmt)
		}
		if err != nil {
			_ = tx.Rollback()
			logger.Debug("data source %s: statement %d of %d failed", e.name, i+1, len(statements))
			return nil, executionError(ctx, e.name, err)
		}
		result.Duration = time.Since(start)
		results = append(results, result)
	}

	if opts.DryRun {
		err = tx.Rollback()
	} else {
		err = tx.Commit()
	}
	if err != nil {
		return nil, executionError(ctx, e.name, err)
	}
	return results, nil
}

func (e *SQLExecutor) query(ctx context.Context, tx *sql.Tx, sqlText string, maxRows int) (*types.Result, error) {
	rows, err := tx.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	result := &types.Result{Query: true, Columns: columns}

	for rows.Next() {
		if maxRows > 0 && len(result.Rows) >= maxRows {
			result.Truncated = true
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i := range values {
			values[i] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *SQLExecutor) exec(ctx context.Context, tx *sql.Tx, sqlText string) (*types.Result, error) {
	res, err := tx.ExecContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = -1
	}
	return &types.Result{RowsAffected: affected}, nil
}

// Close implements Executor
func (e *SQLExecutor) Close() {
	if e.db != nil {
		_ = e.db.Close()
	}
}
