package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/godeye/godeye/internal/store"
)

type Request struct {
	Params store.Params
	SQL    string
}

type Result struct {
	Columns  []string
	Records  []Record
	Duration time.Duration
}

func (r Result) Empty() bool {
	return len(r.Records) == 0
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
}

// Record is one result row keyed by column name, in the column order reported by the store.
type Record struct {
	columns []string
	values  []any
}

func NewRecord(columns []string, values []any) Record {
	return Record{columns: columns, values: values}
}

func (r Record) Get(column string) (any, bool) {
	for i, name := range r.columns {
		if name == column {
			return r.values[i], true
		}
	}
	return nil, false
}

func (r Record) Columns() []string {
	return r.columns
}

func (r Record) Values() []any {
	return r.values
}

func (r Record) Len() int {
	return len(r.columns)
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, column := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(column)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("encode column %q: %w", column, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ExecutionError is a statement the store rejected; the loop regenerates on it.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute query: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// AmbiguousColumnError is an execution error caused by an unqualified column shared by several tables.
type AmbiguousColumnError struct {
	SQL    string
	Detail string
	Err    error
}

func (e *AmbiguousColumnError) Error() string {
	return fmt.Sprintf("Ambiguous column error: %s. Please qualify column names with their table name.", e.Detail)
}

func (e *AmbiguousColumnError) Unwrap() error {
	return e.Err
}

func StripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
