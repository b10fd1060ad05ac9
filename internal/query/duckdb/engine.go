package duckdb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/godeye/godeye/internal/observability"
	"github.com/godeye/godeye/internal/query"
	"github.com/godeye/godeye/internal/store"
)

// Engine runs statements against a DuckDB database file, opening it for every call.
type Engine struct {
	Open    store.Opener
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewEngine(timeout time.Duration, logger *slog.Logger) *Engine {
	return &Engine{Open: store.Open, Timeout: timeout, Logger: logger}
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	if request.Params.Driver != store.DriverDuckDB {
		return query.Result{}, fmt.Errorf("duckdb engine cannot serve driver %q", request.Params.Driver)
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

// DuckDB reports binder errors as text only.
func classify(sqlText string, err error) error {
	message := err.Error()
	if strings.Contains(strings.ToLower(message), "ambiguous reference") {
		return &query.AmbiguousColumnError{SQL: sqlText, Detail: message, Err: err}
	}
	return &query.ExecutionError{SQL: sqlText, Err: err}
}
