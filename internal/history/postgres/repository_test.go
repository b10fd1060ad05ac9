package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/godeye/godeye/internal/config"
	"github.com/godeye/godeye/internal/history"
)

func TestRecordInsertsEntry(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO godeye.ask_history`)).
		WithArgs("trace-1", "web", "top products", "SELECT 1", "success", "", 2, 5, "results/x.parquet", int64(120)).
		WillReturnRows(sqlmock.NewRows([]string{"ask_id", "created_at"}).AddRow(int64(7), now))

	entry, err := repo.Record(context.Background(), history.Entry{
		TraceID:    "trace-1",
		Surface:    "web",
		Question:   "top products",
		SQL:        "SELECT 1",
		Outcome:    "success",
		Attempts:   2,
		RowCount:   5,
		ArchiveKey: "results/x.parquet",
		DurationMS: 120,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if entry.AskID != 7 || !entry.CreatedAt.Equal(now) {
		t.Fatalf("entry = %+v", entry)
	}
	assertSQLMock(t, mock)
}

func TestListAppliesFiltersAndLimit(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE outcome = $1 AND surface = $2\nORDER BY created_at DESC, ask_id DESC\nLIMIT $3")).
		WithArgs("budget_exhausted", "slack", 10).
		WillReturnRows(sqlmock.NewRows([]string{"ask_id", "trace_id", "surface", "question", "sql_text", "outcome", "error_message", "attempts", "row_count", "archive_key", "duration_ms", "created_at"}).
			AddRow(int64(3), "t", "slack", "q", "SELECT 1", "budget_exhausted", "Failed", 3, 0, "", int64(900), now))

	entries, err := repo.List(context.Background(), history.ListFilter{Outcome: "budget_exhausted", Surface: "slack", Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Attempts != 3 || entries[0].ErrorMessage != "Failed" {
		t.Fatalf("entries = %+v", entries)
	}
	assertSQLMock(t, mock)
}

func TestListWithoutFiltersUsesDefaultLimit(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM godeye.ask_history\nORDER BY created_at DESC, ask_id DESC\nLIMIT $1")).
		WithArgs(history.DefaultListLimit).
		WillReturnError(errors.New("relation does not exist"))

	if _, err := repo.List(context.Background(), history.ListFilter{}); err == nil {
		t.Fatal("expected error")
	}
	assertSQLMock(t, mock)
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), config.HistoryConfig{}); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
