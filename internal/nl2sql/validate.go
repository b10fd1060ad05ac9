package nl2sql

import (
	"regexp"
	"slices"

	"github.com/godeye/godeye/internal/catalog"
)

var bareIdentifier = regexp.MustCompile(`\b([A-Za-z0-9_]+)\b`)

type ColumnRef struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// Validation is the result of checking a candidate's qualified column references.
// Invalid is nil when every qualified reference names a known column.
type Validation struct {
	Invalid *ColumnRef `json:"invalid,omitempty"`
	// BareColumns lists unqualified identifiers that match a known column. Unknown
	// bare identifiers are not reported; they surface as execution errors instead.
	BareColumns []string `json:"bare_columns,omitempty"`
}

func (v Validation) Valid() bool {
	return v.Invalid == nil
}

// Validate scans sqlText for table.column references, table by table in snapshot order,
// and reports the first column that table does not have.
func Validate(sqlText string, snapshot catalog.Snapshot) Validation {
	var validation Validation
	seenBare := map[string]struct{}{}

	for _, table := range snapshot.Tables {
		columns := snapshot.Columns[table]
		for _, match := range qualifiedPattern(table).FindAllStringSubmatch(sqlText, -1) {
			if !slices.Contains(columns, match[1]) {
				validation.Invalid = &ColumnRef{Table: table, Column: match[1]}
				return validation
			}
		}
		for _, match := range bareIdentifier.FindAllStringSubmatch(sqlText, -1) {
			name := match[1]
			if _, ok := seenBare[name]; ok || !slices.Contains(columns, name) {
				continue
			}
			seenBare[name] = struct{}{}
			validation.BareColumns = append(validation.BareColumns, name)
		}
	}
	return validation
}

func qualifiedPattern(table string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(table) + `\.([A-Za-z0-9_]+)`)
}
