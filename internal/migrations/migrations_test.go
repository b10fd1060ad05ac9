package migrations

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestLoadMigrationsSortsAndPairsUpDown(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/000002_two.up.sql":   {Data: []byte("SELECT 2;")},
		"sql/000002_two.down.sql": {Data: []byte("SELECT -2;")},
		"sql/000001_one.up.sql":   {Data: []byte("SELECT 1;")},
		"sql/000001_one.down.sql": {Data: []byte("SELECT -1;")},
	}

	items, err := loadMigrations(fsys)
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d", len(items))
	}
	if items[0].Version != 1 || items[1].Version != 2 {
		t.Fatalf("unexpected migration order: %+v", items)
	}
	if items[1].Name != "two" {
		t.Fatalf("Name = %q", items[1].Name)
	}
}

func TestLoadMigrationsErrorsWhenDownMissing(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/000001_one.up.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := loadMigrations(fsys)
	if err == nil || !strings.Contains(err.Error(), "missing down SQL") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHistoryMigrationStaysOutsideIntrospectedNamespace(t *testing.T) {
	body, err := embeddedFS.ReadFile("sql/000001_ask_history.up.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	script := string(body)
	for _, want := range []string{"CREATE SCHEMA IF NOT EXISTS godeye", "CREATE TABLE godeye.ask_history", "ask_history_created_at_idx"} {
		if !strings.Contains(script, want) {
			t.Fatalf("migration missing %q", want)
		}
	}
	if strings.Contains(script, "public.") {
		t.Fatal("history tables must not live in the public schema")
	}
}

func TestUpAppliesPendingMigrations(t *testing.T) {
	db, mock := newSQLMock(t)
	runner := &Runner{fsys: fstest.MapFS{
		"sql/000001_one.up.sql":   {Data: []byte("CREATE TABLE godeye.one (id INT)")},
		"sql/000001_one.down.sql": {Data: []byte("DROP TABLE godeye.one")},
		"sql/000002_two.up.sql":   {Data: []byte("CREATE TABLE godeye.two (id INT)")},
		"sql/000002_two.down.sql": {Data: []byte("DROP TABLE godeye.two")},
	}}

	mock.ExpectExec(regexp.QuoteMeta("CREATE SCHEMA IF NOT EXISTS godeye;")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM godeye.schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(1)))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE godeye.two (id INT)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO godeye.schema_migrations (version) VALUES ($1)")).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	count, err := runner.Up(context.Background(), db, 0)
	if err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("applied = %d", count)
	}
	assertSQLMock(t, mock)
}

func TestStatusReportsAppliedAndPending(t *testing.T) {
	db, mock := newSQLMock(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE SCHEMA IF NOT EXISTS godeye;")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM godeye.schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))

	statuses, err := NewRunner().Status(context.Background(), db)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(statuses) != 1 || statuses[0].Name != "ask_history" || statuses[0].Applied {
		t.Fatalf("statuses = %+v", statuses)
	}
	assertSQLMock(t, mock)
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
