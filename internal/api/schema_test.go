package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/godeye/godeye/internal/catalog"
	"github.com/godeye/godeye/internal/store"
)

func TestSchemaReturnsSnapshot(t *testing.T) {
	cfg := loadConfig(t, map[string]string{})
	fake := &fakeAssistant{snapshot: catalog.Snapshot{
		Tables:      []string{"orders", "products"},
		Columns:     map[string][]string{"orders": {"order_id"}, "products": {"product_id"}},
		PrimaryKeys: map[string][]string{"orders": {"order_id"}},
	}}
	h := NewHandler(cfg, Dependencies{Assistant: fake})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	schema, ok := decodeBody(t, rr)["schema"].(map[string]any)
	if !ok {
		t.Fatalf("body = %s", rr.Body.String())
	}
	tables, _ := schema["tables"].([]any)
	if len(tables) != 2 || tables[0] != "orders" {
		t.Fatalf("tables = %v", schema["tables"])
	}
}

func TestSchemaMapsConnectionErrorToBadGateway(t *testing.T) {
	cfg := loadConfig(t, map[string]string{})
	fake := &fakeAssistant{err: &store.ConnectionError{Target: "postgres://reader@db:5432/shop", Err: errors.New("connection refused")}}
	h := NewHandler(cfg, Dependencies{Assistant: fake})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decodeBody(t, rr)["error_code"]; got != "STORE_UNREACHABLE" {
		t.Fatalf("error_code = %v", got)
	}
}

func TestConnectionTest(t *testing.T) {
	cfg := loadConfig(t, map[string]string{})
	fake := &fakeAssistant{}
	h := NewHandler(cfg, Dependencies{Assistant: fake})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/connection/test", strings.NewReader(`{"connection":{"host":"replica","port":6432}}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["status"] != "connected" || !strings.Contains(body["target"].(string), "replica:6432") {
		t.Fatalf("body = %v", body)
	}
	if len(fake.overrides) != 1 || fake.overrides[0].Host != "replica" {
		t.Fatalf("overrides = %+v", fake.overrides)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/connection/test", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("empty body status = %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestConnectionTestReportsFailure(t *testing.T) {
	cfg := loadConfig(t, map[string]string{})
	fake := &fakeAssistant{err: &store.ConnectionError{Target: "postgres://reader@db:5432/shop", Err: errors.New("password authentication failed")}}
	h := NewHandler(cfg, Dependencies{Assistant: fake})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/connection/test", strings.NewReader(`{}`)))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(decodeBody(t, rr)["message"].(string), "password authentication failed") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}
