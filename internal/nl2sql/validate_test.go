package nl2sql

import (
	"testing"

	"github.com/godeye/godeye/internal/catalog"
)

func shopSnapshot() catalog.Snapshot {
	return catalog.Snapshot{
		Tables: []string{"order_details", "orders", "products"},
		Columns: map[string][]string{
			"order_details": {"order_id", "product_id", "quantity"},
			"orders":        {"order_id", "product_id", "order_date"},
			"products":      {"product_id", "product_name", "price"},
		},
	}
}

func TestValidateAcceptsKnownQualifiedColumns(t *testing.T) {
	sqlText := "SELECT products.product_name, products.price FROM products ORDER BY products.price DESC LIMIT 5;"
	validation := Validate(sqlText, shopSnapshot())
	if !validation.Valid() {
		t.Fatalf("Validate() flagged %+v", validation.Invalid)
	}
}

func TestValidateReportsFirstUnknownQualifiedColumn(t *testing.T) {
	validation := Validate("SELECT orders.prodct_id, products.nme FROM orders", shopSnapshot())
	if validation.Invalid == nil {
		t.Fatal("expected invalid column")
	}
	if *validation.Invalid != (ColumnRef{Table: "orders", Column: "prodct_id"}) {
		t.Fatalf("Invalid = %+v", *validation.Invalid)
	}
}

func TestValidateDoesNotConfuseTableSuffixes(t *testing.T) {
	snapshot := catalog.Snapshot{
		Tables: []string{"orders", "sub_orders"},
		Columns: map[string][]string{
			"orders":     {"id"},
			"sub_orders": {"id", "total"},
		},
	}
	validation := Validate("SELECT sub_orders.total FROM sub_orders", snapshot)
	if !validation.Valid() {
		t.Fatalf("Validate() flagged %+v", validation.Invalid)
	}
}

func TestValidateIgnoresUnknownBareIdentifiers(t *testing.T) {
	validation := Validate("SELECT product_name, bogus_column FROM products", shopSnapshot())
	if !validation.Valid() {
		t.Fatalf("Validate() flagged %+v", validation.Invalid)
	}
	found := false
	for _, name := range validation.BareColumns {
		if name == "bogus_column" {
			t.Fatal("unknown bare identifier must not be recorded")
		}
		if name == "product_name" {
			found = true
		}
	}
	if !found {
		t.Fatalf("BareColumns = %v, want product_name", validation.BareColumns)
	}
}

func TestValidateNeverFlagsColumnsThatExist(t *testing.T) {
	snapshot := shopSnapshot()
	for _, table := range snapshot.Tables {
		for _, column := range snapshot.Columns[table] {
			sqlText := "SELECT " + table + "." + column + " FROM " + table
			if validation := Validate(sqlText, snapshot); !validation.Valid() {
				t.Fatalf("false positive for %s.%s: %+v", table, column, validation.Invalid)
			}
		}
	}
}
