package query

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Classifier maps a statement-start error to ExecutionError or AmbiguousColumnError.
type Classifier func(sqlText string, err error) error

// Run executes one read on db. Errors raised when the statement starts are classified and
// returned. Failures while fetching rows after that point yield an empty result and a warning.
func Run(ctx context.Context, db *sql.DB, sqlText string, classify Classifier, logger *slog.Logger) (Result, error) {
	sqlText = StripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return Result{}, &ExecutionError{SQL: sqlText, Err: fmt.Errorf("sql is required")}
	}
	start := time.Now()

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, classify(sqlText, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		logger.Warn("query columns unavailable, returning empty result", "error", err)
		return Result{Duration: time.Since(start)}, nil
	}

	records := make([]Record, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			logger.Warn("scan row failed, returning empty result", "error", err)
			return Result{Columns: columns, Duration: time.Since(start)}, nil
		}
		records = append(records, NewRecord(columns, normalizeValues(values)))
	}
	if err := rows.Err(); err != nil {
		logger.Warn("iterate rows failed, returning empty result", "error", err)
		return Result{Columns: columns, Duration: time.Since(start)}, nil
	}

	return Result{
		Columns:  columns,
		Records:  records,
		Duration: time.Since(start),
	}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
