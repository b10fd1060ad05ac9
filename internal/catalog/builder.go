package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/godeye/godeye/internal/observability"
	"github.com/godeye/godeye/internal/store"
)

const (
	columnsQuery = `
SELECT table_name, column_name
FROM information_schema.columns
WHERE table_schema = $1
ORDER BY table_name, ordinal_position`

	primaryKeysQuery = `
SELECT kcu.table_name, kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name
 AND tc.table_schema = kcu.table_schema
WHERE tc.constraint_type = 'PRIMARY KEY'
  AND tc.table_schema = $1
ORDER BY kcu.table_name, kcu.ordinal_position`

	foreignKeysQuery = `
SELECT kcu.table_name, kcu.column_name, ccu.table_name, ccu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name
 AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON ccu.constraint_name = tc.constraint_name
 AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
  AND tc.table_schema = $1
ORDER BY kcu.table_name, kcu.ordinal_position`
)

// Builder reads a Snapshot from a store's information_schema.
type Builder struct {
	Open   store.Opener
	Logger *slog.Logger
}

func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{Open: store.Open, Logger: logger}
}

// Build connects, runs the three catalog queries and closes the connection.
// When the store is unreachable it returns the empty sentinel and a *store.ConnectionError.
func (b *Builder) Build(ctx context.Context, params store.Params) (Snapshot, error) {
	start := time.Now()
	snapshot, err := b.build(ctx, params)
	observability.ObserveSchemaFetch(err, time.Since(start))
	if err != nil {
		return empty(), err
	}
	return snapshot, nil
}

func (b *Builder) build(ctx context.Context, params store.Params) (Snapshot, error) {
	open := b.Open
	if open == nil {
		open = store.Open
	}
	db, err := open(ctx, params)
	if err != nil {
		return Snapshot{}, err
	}
	defer func() { _ = db.Close() }()

	namespace := params.Namespace
	if namespace == "" {
		namespace = store.DefaultNamespace(params.Driver)
	}

	snapshot := empty()
	if err := b.loadColumns(ctx, db, namespace, &snapshot); err != nil {
		return Snapshot{}, err
	}
	if err := b.loadPrimaryKeys(ctx, db, namespace, &snapshot); err != nil {
		return Snapshot{}, err
	}
	if err := b.loadForeignKeys(ctx, db, namespace, &snapshot); err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

func (b *Builder) loadColumns(ctx context.Context, db *sql.DB, namespace string, snapshot *Snapshot) error {
	rows, err := db.QueryContext(ctx, columnsQuery, namespace)
	if err != nil {
		return fmt.Errorf("query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return fmt.Errorf("scan column: %w", err)
		}
		if _, ok := snapshot.Columns[table]; !ok {
			snapshot.Tables = append(snapshot.Tables, table)
		}
		snapshot.Columns[table] = append(snapshot.Columns[table], column)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate columns: %w", err)
	}
	sort.Strings(snapshot.Tables)
	return nil
}

func (b *Builder) loadPrimaryKeys(ctx context.Context, db *sql.DB, namespace string, snapshot *Snapshot) error {
	rows, err := db.QueryContext(ctx, primaryKeysQuery, namespace)
	if err != nil {
		return fmt.Errorf("query primary keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return fmt.Errorf("scan primary key: %w", err)
		}
		if !snapshot.HasColumn(table, column) {
			b.logger().Debug("dropping primary key outside snapshot", "table", table, "column", column)
			continue
		}
		snapshot.PrimaryKeys[table] = append(snapshot.PrimaryKeys[table], column)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate primary keys: %w", err)
	}
	return nil
}

func (b *Builder) loadForeignKeys(ctx context.Context, db *sql.DB, namespace string, snapshot *Snapshot) error {
	rows, err := db.QueryContext(ctx, foreignKeysQuery, namespace)
	if err != nil {
		return fmt.Errorf("query foreign keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var table string
		var fk ForeignKey
		if err := rows.Scan(&table, &fk.Column, &fk.ReferencesTable, &fk.ReferencesColumn); err != nil {
			return fmt.Errorf("scan foreign key: %w", err)
		}
		if !snapshot.HasColumn(table, fk.Column) {
			b.logger().Debug("dropping foreign key outside snapshot", "table", table, "column", fk.Column)
			continue
		}
		snapshot.ForeignKeys[table] = append(snapshot.ForeignKeys[table], fk)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate foreign keys: %w", err)
	}
	return nil
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger == nil {
		return observability.NopLogger()
	}
	return b.Logger
}
