package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/godeye/godeye/internal/observability"
	"github.com/godeye/godeye/internal/query"
	"github.com/godeye/godeye/internal/store"
)

const ambiguousColumnCode = "42702"

// Engine runs statements against PostgreSQL through the pgx stdlib driver.
// Every call opens its own connection and closes it before returning.
type Engine struct {
	Open    store.Opener
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewEngine(timeout time.Duration, logger *slog.Logger) *Engine {
	return &Engine{Open: store.Open, Timeout: timeout, Logger: logger}
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	if request.Params.Driver != store.DriverPostgres {
		return query.Result{}, fmt.Errorf("postgres engine cannot serve driver %q", request.Params.Driver)
	}
	open := e.Open
	if open == nil {
		open = store.Open
	}
	db, err := open(ctx, request.Params)
	if err != nil {
		return query.Result{}, err
	}
	defer func() { _ = db.Close() }()

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	logger := e.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	return query.Run(ctx, db, request.SQL, classify, logger)
}

func classify(sqlText string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == ambiguousColumnCode {
		return &query.AmbiguousColumnError{SQL: sqlText, Detail: pgErr.Message, Err: err}
	}
	return &query.ExecutionError{SQL: sqlText, Err: err}
}
