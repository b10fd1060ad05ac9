package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/godeye/godeye/internal/catalog"
	"github.com/godeye/godeye/internal/observability"
	"github.com/godeye/godeye/internal/query"
	"github.com/godeye/godeye/internal/store"
)

const DefaultMaxAttempts = 3

// Generator asks the model for one candidate statement.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Executor runs an accepted candidate against the store the snapshot was read from.
type Executor interface {
	Execute(ctx context.Context, sqlText string) (query.Result, error)
}

type ExecutorFunc func(ctx context.Context, sqlText string) (query.Result, error)

func (f ExecutorFunc) Execute(ctx context.Context, sqlText string) (query.Result, error) {
	return f(ctx, sqlText)
}

type OutcomeKind string

const (
	Success            OutcomeKind = "success"
	InvalidColumnFatal OutcomeKind = "invalid_column"
	BudgetExhausted    OutcomeKind = "budget_exhausted"
)

type AttemptOutcome string

const (
	AttemptAccepted                AttemptOutcome = "accepted"
	AttemptCorrectedAndRetried     AttemptOutcome = "corrected_and_retried"
	AttemptExecutionFailedRetried  AttemptOutcome = "execution_failed_retried"
	AttemptGenerationFailedRetried AttemptOutcome = "generation_failed_retried"
	AttemptColumnNotFound          AttemptOutcome = "column_not_found"
	AttemptExhausted               AttemptOutcome = "exhausted"
)

// Attempt records one pass through generate, validate and execute.
type Attempt struct {
	Number     int            `json:"number"`
	SQL        string         `json:"sql"`
	Validation Validation     `json:"validation"`
	Outcome    AttemptOutcome `json:"outcome"`
	Error      string         `json:"error,omitempty"`
}

// Outcome is the terminal state of a Run. Message is set for the two failure kinds.
type Outcome struct {
	Kind     OutcomeKind
	SQL      string
	Result   query.Result
	Message  string
	Attempts []Attempt
}

type Loop struct {
	Generator   Generator
	Executor    Executor
	MaxAttempts int
	Logger      *slog.Logger
}

// Run drives the generate, validate, repair and execute cycle until success or a terminal
// failure. Recoverable problems are absorbed into the Outcome. The error is non-nil only when
// the store is unreachable or ctx expires.
func (l *Loop) Run(ctx context.Context, prompt string, snapshot catalog.Snapshot) (Outcome, error) {
	maxAttempts := l.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	logger := l.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	var (
		attempts  []Attempt
		candidate string
		repaired  bool
		lastErr   error
	)

	for number := 1; number <= maxAttempts; number++ {
		if err := ctx.Err(); err != nil {
			return Outcome{SQL: candidate, Attempts: attempts}, err
		}

		if !repaired {
			text, err := l.Generator.Generate(ctx, prompt)
			if err != nil {
				if ctx.Err() != nil {
					return Outcome{SQL: candidate, Attempts: attempts}, ctx.Err()
				}
				logger.Warn("generation failed", "attempt", number, "error", err)
				observability.IncrementGenerationFailure()
				attempts = append(attempts, Attempt{Number: number, Outcome: AttemptGenerationFailedRetried, Error: err.Error()})
				lastErr = err
				continue
			}
			candidate = StripCodeFences(text)
		}
		repaired = false

		validation := Validate(candidate, snapshot)
		if ref := validation.Invalid; ref != nil {
			available := snapshot.Columns[ref.Table]
			closest, ok := ClosestColumn(ref.Column, available)
			if !ok {
				attempts = append(attempts, Attempt{Number: number, SQL: candidate, Validation: validation, Outcome: AttemptColumnNotFound})
				return Outcome{
					Kind:     InvalidColumnFatal,
					SQL:      candidate,
					Message:  fmt.Sprintf("The column '%s' does not exist in '%s'. Available columns: %s", ref.Column, ref.Table, formatColumns(available)),
					Attempts: attempts,
				}, nil
			}
			logger.Debug("repairing column", "attempt", number, "table", ref.Table, "column", ref.Column, "replacement", closest)
			observability.IncrementColumnRepair()
			attempts = append(attempts, Attempt{Number: number, SQL: candidate, Validation: validation, Outcome: AttemptCorrectedAndRetried})
			candidate = ReplaceColumn(candidate, ref.Column, closest)
			repaired = true
			lastErr = nil
			continue
		}

		result, err := l.Executor.Execute(ctx, candidate)
		if err != nil {
			if store.IsConnectionError(err) {
				return Outcome{SQL: candidate, Attempts: attempts}, err
			}
			if ctx.Err() != nil {
				return Outcome{SQL: candidate, Attempts: attempts}, ctx.Err()
			}
			logger.Info("candidate failed to execute", "attempt", number, "error", err)
			observability.IncrementExecutionRetry()
			attempts = append(attempts, Attempt{Number: number, SQL: candidate, Validation: validation, Outcome: AttemptExecutionFailedRetried, Error: err.Error()})
			lastErr = err
			continue
		}

		attempts = append(attempts, Attempt{Number: number, SQL: candidate, Validation: validation, Outcome: AttemptAccepted})
		return Outcome{Kind: Success, SQL: candidate, Result: result, Attempts: attempts}, nil
	}

	if len(attempts) > 0 {
		attempts[len(attempts)-1].Outcome = AttemptExhausted
	}
	message := fmt.Sprintf("Failed to generate a valid SQL query after %d attempts.", maxAttempts)
	var ambiguous *query.AmbiguousColumnError
	if errors.As(lastErr, &ambiguous) {
		message += " " + ambiguous.Error()
	}
	return Outcome{Kind: BudgetExhausted, SQL: candidate, Message: message, Attempts: attempts}, nil
}

func formatColumns(columns []string) string {
	quoted := make([]string, 0, len(columns))
	for _, column := range columns {
		quoted = append(quoted, "'"+column+"'")
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
