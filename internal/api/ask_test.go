package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/godeye/godeye/internal/assistant"
	"github.com/godeye/godeye/internal/auth"
	"github.com/godeye/godeye/internal/query"
)

func TestAskReturnsAnswerWithMarkdownTable(t *testing.T) {
	cfg := loadConfig(t, map[string]string{})
	columns := []string{"product_name", "price"}
	fake := &fakeAssistant{answer: assistant.Answer{
		Kind:    assistant.KindSuccess,
		SQL:     "SELECT products.product_name, products.price FROM products",
		Columns: columns,
		Records: []query.Record{query.NewRecord(columns, []any{"Chai", 18.0})},
	}}
	h := NewHandler(cfg, Dependencies{Assistant: fake})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"price of chai"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["kind"] != assistant.KindSuccess {
		t.Fatalf("kind = %v", body["kind"])
	}
	records, ok := body["records"].([]any)
	if !ok || len(records) != 1 {
		t.Fatalf("records = %v", body["records"])
	}
	if body["error"] != nil {
		t.Fatalf("error = %v", body["error"])
	}
	if !strings.Contains(body["table_markdown"].(string), "| Chai") {
		t.Fatalf("table = %v", body["table_markdown"])
	}
	if len(fake.requests) != 1 || fake.requests[0].Surface != assistant.SurfaceWeb || fake.requests[0].Override != nil {
		t.Fatalf("requests = %+v", fake.requests)
	}
}

func TestAskPassesFailureThroughAnswer(t *testing.T) {
	cfg := loadConfig(t, map[string]string{})
	message := "Failed to generate a valid SQL query after 3 attempts."
	fake := &fakeAssistant{answer: assistant.Answer{Kind: assistant.KindBudgetExhausted, Error: &message}}
	h := NewHandler(cfg, Dependencies{Assistant: fake})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"anything"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["error"] != message || body["records"] != nil {
		t.Fatalf("body = %v", body)
	}
}

func TestAskRejectsBlankQuestionAndBadJSON(t *testing.T) {
	cfg := loadConfig(t, map[string]string{})
	h := NewHandler(cfg, Dependencies{Assistant: &fakeAssistant{}})

	cases := []struct {
		body string
		code string
	}{
		{body: `{"question":"  "}`, code: "QUESTION_REQUIRED"},
		{body: `{"question":`, code: "INVALID_JSON"},
		{body: `{"question":"x","sql":"DROP TABLE products"}`, code: "INVALID_JSON"},
		{body: `{"question":"x","connection":{"driver":"mysql"}}`, code: "INVALID_CONNECTION"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(tc.body)))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", tc.body, rr.Code)
		}
		if got := decodeBody(t, rr)["error_code"]; got != tc.code {
			t.Fatalf("%s: error_code = %v", tc.body, got)
		}
	}
}

func TestAskConnectionOverrideNeedsOperatorRole(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"GODEYE_AUTH_REQUIRED": "true"})
	validator, err := auth.NewStaticAPIKeyValidator("asker-key:bot:asker,operator-key:ops:operator|asker")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}
	fake := &fakeAssistant{answer: assistant.Answer{Kind: assistant.KindSuccess}}
	h := NewHandler(cfg, Dependencies{AuthMiddleware: auth.Middleware(nil, validator), Assistant: fake})

	body := `{"question":"count orders","connection":{"database":"analytics"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(body))
	req.Header.Set("X-API-Key", "asker-key")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("asker status = %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(body))
	req.Header.Set("X-API-Key", "operator-key")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("operator status = %d body=%s", rr.Code, rr.Body.String())
	}
	if len(fake.requests) != 1 || fake.requests[0].Override == nil || fake.requests[0].Override.Database != "analytics" {
		t.Fatalf("requests = %+v", fake.requests)
	}
}

func TestAskNotConfigured(t *testing.T) {
	cfg := loadConfig(t, map[string]string{})
	h := NewHandler(cfg, Dependencies{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"x"}`)))
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rr.Code)
	}
}
