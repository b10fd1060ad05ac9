package query

import (
	"context"
	"errors"
	"testing"
)

func TestRecordMarshalJSONPreservesColumnOrder(t *testing.T) {
	record := NewRecord([]string{"zeta", "alpha", "mid"}, []any{1, "two", nil})
	encoded, err := record.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if got := string(encoded); got != `{"zeta":1,"alpha":"two","mid":null}` {
		t.Fatalf("MarshalJSON() = %s", got)
	}
}

func TestRecordGet(t *testing.T) {
	record := NewRecord([]string{"a", "b"}, []any{1, 2})
	if value, ok := record.Get("b"); !ok || value != 2 {
		t.Fatalf("Get(b) = %v, %v", value, ok)
	}
	if _, ok := record.Get("c"); ok {
		t.Fatal("Get(c) should miss")
	}
}

func TestStripTrailingSemicolons(t *testing.T) {
	if got := StripTrailingSemicolons(" SELECT 1 ;; "); got != "SELECT 1" {
		t.Fatalf("StripTrailingSemicolons() = %q", got)
	}
}

type stubEngine struct {
	called bool
}

func (s *stubEngine) Execute(context.Context, Request) (Result, error) {
	s.called = true
	return Result{}, nil
}

func TestRouterDispatchesByDriver(t *testing.T) {
	pg := &stubEngine{}
	duck := &stubEngine{}
	router := NewRouter(map[string]Engine{"pgx": pg, "duckdb": duck})

	request := Request{SQL: "SELECT 1"}
	request.Params.Driver = "duckdb"
	if _, err := router.Execute(context.Background(), request); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if pg.called || !duck.called {
		t.Fatalf("pg=%v duck=%v", pg.called, duck.called)
	}

	request.Params.Driver = "oracle"
	if _, err := router.Execute(context.Background(), request); err == nil {
		t.Fatal("expected unknown driver error")
	}
}

func TestAmbiguousColumnErrorUnwraps(t *testing.T) {
	cause := errors.New("driver detail")
	err := error(&AmbiguousColumnError{Detail: "x", Err: cause})
	if !errors.Is(err, cause) {
		t.Fatal("errors.Is should see the driver error")
	}
}
