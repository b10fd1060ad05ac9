// Package prompt renders the instruction sent to the generation model.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/godeye/godeye/internal/catalog"
	"github.com/godeye/godeye/internal/store"
)

const qualifiedExample = "SELECT products.product_name, products.price FROM products ORDER BY products.price DESC LIMIT 5;"

type Dialect string

const (
	DialectPostgres Dialect = "PostgreSQL"
	DialectDuckDB   Dialect = "DuckDB"
)

func DialectFor(driver string) Dialect {
	if driver == store.DriverDuckDB {
		return DialectDuckDB
	}
	return DialectPostgres
}

// Hint is the known date range of a temporal column.
type Hint struct {
	Column string
	Min    time.Time
	Max    time.Time
}

type Freshness struct {
	Hints           []Hint
	ReferenceColumn string
}

// Latest returns the newest known date of the reference column.
func (f Freshness) Latest() (time.Time, bool) {
	for _, hint := range f.Hints {
		if hint.Column == f.ReferenceColumn {
			return hint.Max, true
		}
	}
	return time.Time{}, false
}

// Build renders the schema, the qualification rules, the freshness hints and the question.
func Build(snapshot catalog.Snapshot, freshness Freshness, dialect Dialect, userText string) string {
	if dialect == "" {
		dialect = DialectPostgres
	}
	var b strings.Builder

	b.WriteString("Database schema:\n")
	b.WriteString("Tables:\n")
	for _, table := range snapshot.Tables {
		fmt.Fprintf(&b, "  - %s\n", table)
	}
	b.WriteString("Columns per table:\n")
	for _, table := range snapshot.Tables {
		fmt.Fprintf(&b, "  %s: [%s]\n", table, strings.Join(snapshot.Columns[table], ", "))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "# Example: %s\n", qualifiedExample)
	b.WriteString("# IMPORTANT: Always qualify column names with their table name or alias (e.g., table.column), especially when joining tables.\n")
	b.WriteString("# IMPORTANT: Use only the table and column names listed above. If a requested column does not exist, use the closest matching column(s) from the schema.\n")
	fmt.Fprintf(&b, "Write only the SQL query (no explanation) for %s, using the exact table and column names from the schema above.\n", dialect)

	if len(freshness.Hints) > 0 {
		b.WriteString("Be aware of the date ranges actually present in the data:\n")
		for _, hint := range freshness.Hints {
			fmt.Fprintf(&b, "  %s: %s .. %s\n", hint.Column, hint.Min.Format(time.DateOnly), hint.Max.Format(time.DateOnly))
		}
		b.WriteString("Resolve relative dates against these ranges, not the current date.\n")
	}

	b.WriteString("Adjust the SQL query to match the user's request: ")
	b.WriteString(userText)
	return b.String()
}
