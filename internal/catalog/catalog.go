package catalog

import "slices"

// Snapshot is the live schema of one namespace, read fresh for every question.
type Snapshot struct {
	Tables      []string                `json:"tables"`
	Columns     map[string][]string     `json:"columns"`
	PrimaryKeys map[string][]string     `json:"primary_keys"`
	ForeignKeys map[string][]ForeignKey `json:"foreign_keys"`
}

type ForeignKey struct {
	Column           string `json:"column"`
	ReferencesTable  string `json:"references_table"`
	ReferencesColumn string `json:"references_column"`
}

// IsEmpty reports whether s is the "no schema" sentinel returned when the store is unreachable.
func (s Snapshot) IsEmpty() bool {
	return len(s.Tables) == 0 && len(s.Columns) == 0 && len(s.PrimaryKeys) == 0 && len(s.ForeignKeys) == 0
}

func (s Snapshot) HasTable(table string) bool {
	_, ok := s.Columns[table]
	return ok
}

func (s Snapshot) HasColumn(table, column string) bool {
	return slices.Contains(s.Columns[table], column)
}

// AllColumns returns the distinct column names across every table, in table order.
func (s Snapshot) AllColumns() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, table := range s.Tables {
		for _, column := range s.Columns[table] {
			if _, ok := seen[column]; ok {
				continue
			}
			seen[column] = struct{}{}
			out = append(out, column)
		}
	}
	return out
}

func empty() Snapshot {
	return Snapshot{
		Tables:      []string{},
		Columns:     map[string][]string{},
		PrimaryKeys: map[string][]string{},
		ForeignKeys: map[string][]ForeignKey{},
	}
}
