// Package archive stores successful answers as parquet in the object store.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/godeye/godeye/internal/query"
	"github.com/godeye/godeye/internal/storage"
	"github.com/godeye/godeye/internal/summarize"
)

const ContentType = "application/vnd.apache.parquet"

// Cell is one value of a result in long format. Value is nil for SQL NULL.
type Cell struct {
	Row       int64   `parquet:"row"`
	Column    string  `parquet:"column"`
	Value     *string `parquet:"value,optional"`
	ValueType string  `parquet:"value_type"`
}

type Archiver struct {
	Store storage.ObjectStore
	Now   func() time.Time
}

func NewArchiver(store storage.ObjectStore) *Archiver {
	return &Archiver{Store: store, Now: time.Now}
}

// Archive encodes result and uploads it, returning the object key.
func (a *Archiver) Archive(ctx context.Context, result query.Result) (string, error) {
	data, err := Encode(result)
	if err != nil {
		return "", err
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	key, err := storage.ResultKey(uuid.NewString(), now())
	if err != nil {
		return "", err
	}
	if _, err := a.Store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: ContentType}); err != nil {
		return "", fmt.Errorf("archive result: %w", err)
	}
	return key, nil
}

func Encode(result query.Result) ([]byte, error) {
	cells := make([]Cell, 0, len(result.Records)*len(result.Columns))
	for rowIndex, record := range result.Records {
		values := record.Values()
		for i, column := range record.Columns() {
			cell := Cell{Row: int64(rowIndex), Column: column, ValueType: valueType(values[i])}
			if values[i] != nil {
				text := summarize.FormatValue(values[i])
				cell.Value = &text
			}
			cells = append(cells, cell)
		}
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[Cell](buf)
	if _, err := writer.Write(cells); err != nil {
		return nil, fmt.Errorf("write parquet cells: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func valueType(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string, []byte:
		return "string"
	case bool:
		return "bool"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case float32, float64:
		return "float"
	case time.Time:
		return "timestamp"
	default:
		return fmt.Sprintf("%T", value)
	}
}
