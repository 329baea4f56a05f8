package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	sqlerrors "github.com/cybertec-postgresql/sqlconsole/internal/errors"
	"github.com/cybertec-postgresql/sqlconsole/pkg/types"
)

// ErrNoStatements is returned when the SQL text holds no statement at all
var ErrNoStatements = errors.New("no SQL statement to execute")

// Executor runs SQL text against one data source
type Executor interface {
	// Execute runs every statement of sql in one transaction and returns
	// one result per statement, in order
	Execute(ctx context.Context, sql string, opts ExecOptions) ([]*types.Result, error)

	// Kind returns the database kind behind the executor
	Kind() Kind

	// Close releases all connections
	Close()
}

// ExecOptions controls a single execution
type ExecOptions struct {
	MaxRows int           // Rows kept in the result, 0 means unlimited
	DryRun  bool          // Roll back instead of committing
	Timeout time.Duration // 0 means no timeout beyond ctx
}

// Open connects to a data source using the executor for its kind
func Open(ctx context.Context, ds types.DataSource) (Executor, error) {
	kind, err := ParseKind(ds.Kind)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindPostgres:
		pool, err := NewPool(ctx, ds)
		if err != nil {
			return nil, err
		}
		return pool, nil
	case KindSQLite, KindMySQL:
		ex, err := OpenSQL(ctx, ds, kind)
		if err != nil {
			return nil, err
		}
		return ex, nil
	default:
		return nil, fmt.Errorf("unsupported data source kind: %s", kind)
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// executionError converts a driver error, keeping the context error visible
// to errors.Is when the statement was cut short by ctx
func executionError(ctx context.Context, dataSource string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	return sqlerrors.NewExecutionError(dataSource, err)
}

// normalizeValue converts a driver value into a JSON friendly value
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case int64, float64, bool, string:
		return val
	case float32:
		return float64(val)
	case uint64:
		return strconv.FormatUint(val, 10)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", val)
	}
}
