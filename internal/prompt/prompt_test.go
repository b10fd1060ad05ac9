package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/godeye/godeye/internal/catalog"
)

func northwind() Freshness {
	return Freshness{
		Hints: []Hint{
			{Column: "birth_date", Min: date("1937-09-19"), Max: date("1966-01-27")},
			{Column: "order_date", Min: date("1996-07-04"), Max: date("1998-05-06")},
		},
		ReferenceColumn: "order_date",
	}
}

func TestBuildRendersSchemaRulesAndQuestion(t *testing.T) {
	snapshot := catalog.Snapshot{
		Tables:  []string{"orders", "products"},
		Columns: map[string][]string{"orders": {"order_id", "product_id"}, "products": {"product_name", "price"}},
	}

	got := Build(snapshot, northwind(), DialectPostgres, "top 5 products by price")

	for _, want := range []string{
		"Database schema:\nTables:\n  - orders\n  - products\n",
		"  orders: [order_id, product_id]\n",
		"  products: [product_name, price]\n",
		qualifiedExample,
		"Always qualify column names",
		"closest matching column",
		"for PostgreSQL",
		"order_date: 1996-07-04 .. 1998-05-06",
		"birth_date: 1937-09-19 .. 1966-01-27",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "top 5 products by price") {
		t.Fatalf("prompt should end with the question:\n%s", got)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	snapshot := catalog.Snapshot{Tables: []string{"t"}, Columns: map[string][]string{"t": {"a"}}}
	first := Build(snapshot, Freshness{}, DialectDuckDB, "q")
	second := Build(snapshot, Freshness{}, DialectDuckDB, "q")
	if first != second {
		t.Fatal("Build() is not deterministic")
	}
	if !strings.Contains(first, "for DuckDB") {
		t.Fatalf("dialect missing:\n%s", first)
	}
	if strings.Contains(first, "date ranges") {
		t.Fatal("freshness section should be omitted without hints")
	}
}

func TestFreshnessLatest(t *testing.T) {
	latest, ok := northwind().Latest()
	if !ok || latest.Format(time.DateOnly) != "1998-05-06" {
		t.Fatalf("Latest() = %v, %v", latest, ok)
	}
	if _, ok := (Freshness{ReferenceColumn: "missing"}).Latest(); ok {
		t.Fatal("Latest() should miss for unknown reference column")
	}
}

func TestDialectFor(t *testing.T) {
	if DialectFor("duckdb") != DialectDuckDB || DialectFor("pgx") != DialectPostgres {
		t.Fatal("unexpected dialect mapping")
	}
}

func date(value string) time.Time {
	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		panic(err)
	}
	return parsed
}
