// Package assistant answers one natural-language question end to end.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/godeye/godeye/internal/catalog"
	"github.com/godeye/godeye/internal/chart"
	"github.com/godeye/godeye/internal/history"
	"github.com/godeye/godeye/internal/nl2sql"
	"github.com/godeye/godeye/internal/observability"
	"github.com/godeye/godeye/internal/prompt"
	"github.com/godeye/godeye/internal/query"
	"github.com/godeye/godeye/internal/store"
)

const (
	KindSuccess         = string(nl2sql.Success)
	KindInvalidColumn   = string(nl2sql.InvalidColumnFatal)
	KindBudgetExhausted = string(nl2sql.BudgetExhausted)
	KindConnectionError = "connection_error"
	KindSchemaError     = "schema_error"
	KindNoSchema        = "no_schema"
	KindTimeout         = "timeout"
	KindInvalidRequest  = "invalid_request"
)

const (
	SurfaceWeb      = "web"
	SurfaceSlack    = "slack"
	SurfaceTelegram = "telegram"
	SurfaceCLI      = "cli"
)

type SchemaSource interface {
	Build(ctx context.Context, params store.Params) (catalog.Snapshot, error)
}

type Explainer interface {
	Explain(ctx context.Context, question, sqlText string, result query.Result) (string, error)
}

type ChartSuggester interface {
	Suggest(ctx context.Context, question string, columns []string) (chart.Spec, bool)
}

type ResultArchiver interface {
	Archive(ctx context.Context, result query.Result) (string, error)
}

type Request struct {
	Question string
	// Override replaces the configured connection fields it sets.
	Override *store.Params
	Surface  string
}

// Answer is what every front-end renders. On failure Error is set and Records is nil.
// A successful query with no rows leaves both nil.
type Answer struct {
	TraceID     string           `json:"trace_id"`
	Question    string           `json:"question"`
	Kind        string           `json:"kind"`
	SQL         string           `json:"sql,omitempty"`
	Columns     []string         `json:"columns,omitempty"`
	Records     []query.Record   `json:"records"`
	Error       *string          `json:"error"`
	Explanation string           `json:"explanation,omitempty"`
	Chart       *chart.Spec      `json:"chart,omitempty"`
	ChartTitle  string           `json:"chart_title,omitempty"`
	ArchiveKey  string           `json:"archive_key,omitempty"`
	Attempts    []nl2sql.Attempt `json:"attempts,omitempty"`
	DurationMS  int64            `json:"duration_ms"`
}

func (a Answer) Failed() bool {
	return a.Error != nil
}

func (a Answer) ErrorMessage() string {
	if a.Error == nil {
		return ""
	}
	return *a.Error
}

type Service struct {
	Defaults     store.Params
	Schema       SchemaSource
	Engine       query.Engine
	Generator    nl2sql.Generator
	Explainer    Explainer
	Charts       ChartSuggester
	Archiver     ResultArchiver
	History      history.Repository
	Check        func(ctx context.Context, params store.Params) error
	Freshness    prompt.Freshness
	MaxAttempts  int
	Deadline     time.Duration
	ChartEnabled bool
	Logger       *slog.Logger
}

// Ask runs schema build, prompt, loop, explanation and the optional extras for one question.
func (s *Service) Ask(ctx context.Context, req Request) Answer {
	start := time.Now()
	ctx, traceID := observability.EnsureTraceID(ctx)
	logger := s.logger().With("trace_id", traceID, "surface", req.Surface)

	answer := s.ask(ctx, logger, req)
	answer.TraceID = traceID
	answer.Question = req.Question
	answer.DurationMS = time.Since(start).Milliseconds()

	observability.ObserveAsk(answer.Kind, len(answer.Attempts), time.Since(start))
	logger.Info("question answered", "kind", answer.Kind, "attempts", len(answer.Attempts), "duration_ms", answer.DurationMS)
	s.record(ctx, logger, req, answer)
	return answer
}

func (s *Service) ask(ctx context.Context, logger *slog.Logger, req Request) Answer {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return failed(KindInvalidRequest, "Please ask a valid question.")
	}
	if s.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Deadline)
		defer cancel()
	}

	params := s.Params(req.Override)
	snapshot, err := s.Schema.Build(ctx, params)
	if err != nil {
		logger.Warn("schema build failed", "target", params.Target(), "error", err)
		if store.IsConnectionError(err) {
			return failed(KindConnectionError, err.Error())
		}
		return failed(KindSchemaError, err.Error())
	}
	if snapshot.IsEmpty() {
		return failed(KindNoSchema, fmt.Sprintf("No tables were found in schema %q of %s.", params.Namespace, params.Target()))
	}

	loop := &nl2sql.Loop{
		Generator:   s.Generator,
		Executor:    s.executorFor(params),
		MaxAttempts: s.MaxAttempts,
		Logger:      logger,
	}
	instruction := prompt.Build(snapshot, s.Freshness, prompt.DialectFor(params.Driver), question)
	outcome, err := loop.Run(ctx, instruction, snapshot)
	if err != nil {
		answer := failed(KindTimeout, s.timeoutMessage())
		if store.IsConnectionError(err) {
			answer = failed(KindConnectionError, err.Error())
		}
		answer.SQL = outcome.SQL
		answer.Attempts = outcome.Attempts
		return answer
	}
	if outcome.Kind != nl2sql.Success {
		answer := failed(string(outcome.Kind), outcome.Message)
		answer.SQL = outcome.SQL
		answer.Attempts = outcome.Attempts
		return answer
	}

	answer := Answer{
		Kind:     KindSuccess,
		SQL:      outcome.SQL,
		Columns:  outcome.Result.Columns,
		Attempts: outcome.Attempts,
	}
	if !outcome.Result.Empty() {
		answer.Records = outcome.Result.Records
	}
	s.enrich(ctx, logger, question, outcome, &answer)
	return answer
}

func (s *Service) enrich(ctx context.Context, logger *slog.Logger, question string, outcome nl2sql.Outcome, answer *Answer) {
	if s.Explainer != nil {
		explanation, err := s.Explainer.Explain(ctx, question, outcome.SQL, outcome.Result)
		if err != nil {
			logger.Warn("explanation failed", "error", err)
		}
		answer.Explanation = explanation
	}
	if outcome.Result.Empty() {
		return
	}
	if s.ChartEnabled && s.Charts != nil && chart.WantsChart(question) {
		if spec, ok := s.Charts.Suggest(ctx, question, outcome.Result.Columns); ok {
			answer.Chart = &spec
			answer.ChartTitle = spec.Title()
		}
	}
	if s.Archiver != nil {
		key, err := s.Archiver.Archive(ctx, outcome.Result)
		if err != nil {
			logger.Warn("archive failed", "error", err)
		}
		answer.ArchiveKey = key
	}
}

func (s *Service) record(ctx context.Context, logger *slog.Logger, req Request, answer Answer) {
	if s.History == nil {
		return
	}
	entry := history.Entry{
		TraceID:      answer.TraceID,
		Surface:      req.Surface,
		Question:     answer.Question,
		SQL:          answer.SQL,
		Outcome:      answer.Kind,
		ErrorMessage: answer.ErrorMessage(),
		Attempts:     len(answer.Attempts),
		RowCount:     len(answer.Records),
		ArchiveKey:   answer.ArchiveKey,
		DurationMS:   answer.DurationMS,
	}
	if _, err := s.History.Record(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn("record history failed", "error", err)
	}
}

// Params merges an optional per-request override onto the configured defaults.
func (s *Service) Params(override *store.Params) store.Params {
	if override == nil {
		return store.Params{}.WithDefaults(s.Defaults)
	}
	return override.WithDefaults(s.Defaults)
}

// Describe returns the live schema of the selected store.
func (s *Service) Describe(ctx context.Context, override *store.Params) (catalog.Snapshot, error) {
	return s.Schema.Build(ctx, s.Params(override))
}

// TestConnection opens and closes a connection to the selected store.
func (s *Service) TestConnection(ctx context.Context, override *store.Params) error {
	check := s.Check
	if check == nil {
		check = store.Check
	}
	return check(ctx, s.Params(override))
}

func (s *Service) executorFor(params store.Params) nl2sql.Executor {
	return nl2sql.ExecutorFunc(func(ctx context.Context, sqlText string) (query.Result, error) {
		return s.Engine.Execute(ctx, query.Request{Params: params, SQL: sqlText})
	})
}

func (s *Service) timeoutMessage() string {
	if s.Deadline <= 0 {
		return "The request was cancelled before an answer was ready."
	}
	return fmt.Sprintf("The request did not finish within %s. Please try a simpler question.", s.Deadline)
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return observability.NopLogger()
	}
	return s.Logger
}

func failed(kind, message string) Answer {
	return Answer{Kind: kind, Error: &message}
}
