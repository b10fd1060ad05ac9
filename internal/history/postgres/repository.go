package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/godeye/godeye/internal/history"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history db: %w", err)
	}
	return nil
}

func (r *Repository) Record(ctx context.Context, entry history.Entry) (history.Entry, error) {
	const q = `
INSERT INTO godeye.ask_history (trace_id, surface, question, sql_text, outcome, error_message, attempts, row_count, archive_key, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ask_id, created_at`
	err := r.db.QueryRowContext(ctx, q,
		entry.TraceID,
		entry.Surface,
		entry.Question,
		entry.SQL,
		entry.Outcome,
		entry.ErrorMessage,
		entry.Attempts,
		entry.RowCount,
		entry.ArchiveKey,
		entry.DurationMS,
	).Scan(&entry.AskID, &entry.CreatedAt)
	if err != nil {
		return history.Entry{}, fmt.Errorf("insert ask history: %w", err)
	}
	return entry, nil
}

func (r *Repository) List(ctx context.Context, filter history.ListFilter) ([]history.Entry, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Outcome != "" {
		args = append(args, filter.Outcome)
		conditions = append(conditions, fmt.Sprintf("outcome = $%d", len(args)))
	}
	if filter.Surface != "" {
		args = append(args, filter.Surface)
		conditions = append(conditions, fmt.Sprintf("surface = $%d", len(args)))
	}
	args = append(args, history.NormalizeLimit(filter.Limit))

	q := `
SELECT ask_id, trace_id, surface, question, sql_text, outcome, error_message, attempts, row_count, archive_key, duration_ms, created_at
FROM godeye.ask_history`
	if len(conditions) > 0 {
		q += "\nWHERE " + strings.Join(conditions, " AND ")
	}
	q += fmt.Sprintf("\nORDER BY created_at DESC, ask_id DESC\nLIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list ask history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]history.Entry, 0)
	for rows.Next() {
		var entry history.Entry
		if err := rows.Scan(
			&entry.AskID,
			&entry.TraceID,
			&entry.Surface,
			&entry.Question,
			&entry.SQL,
			&entry.Outcome,
			&entry.ErrorMessage,
			&entry.Attempts,
			&entry.RowCount,
			&entry.ArchiveKey,
			&entry.DurationMS,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ask history: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ask history: %w", err)
	}
	return entries, nil
}
