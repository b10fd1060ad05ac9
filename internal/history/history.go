// Package history records every answered question for later review.
package history

import (
	"context"
	"time"
)

type Entry struct {
	AskID        int64     `json:"ask_id"`
	TraceID      string    `json:"trace_id"`
	Surface      string    `json:"surface"`
	Question     string    `json:"question"`
	SQL          string    `json:"sql"`
	Outcome      string    `json:"outcome"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Attempts     int       `json:"attempts"`
	RowCount     int       `json:"row_count"`
	ArchiveKey   string    `json:"archive_key,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

type ListFilter struct {
	Outcome string
	Surface string
	Limit   int
}

type Repository interface {
	HealthCheck(ctx context.Context) error
	Record(ctx context.Context, entry Entry) (Entry, error)
	List(ctx context.Context, filter ListFilter) ([]Entry, error)
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// NormalizeLimit clamps a requested page size.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
