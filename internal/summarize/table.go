package summarize

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/godeye/godeye/internal/query"
)

// MarkdownTable renders at most limit records of result as a markdown table.
// A limit of zero or less renders every record.
func MarkdownTable(result query.Result, limit int) string {
	records := result.Records
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	t := table.NewWriter()
	header := make(table.Row, len(result.Columns))
	for i, column := range result.Columns {
		header[i] = column
	}
	t.AppendHeader(header)
	for _, record := range records {
		row := make(table.Row, 0, record.Len())
		for _, value := range record.Values() {
			row = append(row, FormatValue(value))
		}
		t.AppendRow(row)
	}
	return t.RenderMarkdown()
}

func FormatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(typed)
	case time.Time:
		if typed.Hour() == 0 && typed.Minute() == 0 && typed.Second() == 0 && typed.Nanosecond() == 0 {
			return typed.Format(time.DateOnly)
		}
		return typed.Format(time.RFC3339)
	case float64:
		return fmt.Sprintf("%.2f", typed)
	case float32:
		return fmt.Sprintf("%.2f", typed)
	default:
		return fmt.Sprint(typed)
	}
}
