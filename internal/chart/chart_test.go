package chart

import (
	"context"
	"errors"
	"testing"

	"github.com/godeye/godeye/internal/llm"
)

type fakeCompleter struct {
	reply string
	err   error
}

func (c fakeCompleter) Complete(context.Context, llm.Request) (string, error) {
	return c.reply, c.err
}

func TestWantsChart(t *testing.T) {
	if !WantsChart("Plot monthly revenue") {
		t.Fatal("expected chart intent")
	}
	if WantsChart("How many orders were placed in 1997?") {
		t.Fatal("unexpected chart intent")
	}
}

func TestRequestedType(t *testing.T) {
	if got, ok := RequestedType("draw a PIE of sales by category"); !ok || got != "pie" {
		t.Fatalf("RequestedType() = %q, %v", got, ok)
	}
	if _, ok := RequestedType("revenue by year"); ok {
		t.Fatal("no chart type expected")
	}
}

func TestSuggestUsesModelReply(t *testing.T) {
	classifier := &Classifier{Completer: fakeCompleter{reply: "```json\n{\"chart_type\":\"line\",\"x\":\"month\",\"y\":\"revenue\"}\n```"}}
	spec, ok := classifier.Suggest(context.Background(), "revenue over time", []string{"month", "revenue"})
	if !ok {
		t.Fatal("Suggest() = false")
	}
	if spec != (Spec{Type: "line", X: "month", Y: "revenue"}) {
		t.Fatalf("spec = %+v", spec)
	}
}

func TestSuggestFallsBackOnMalformedReply(t *testing.T) {
	classifier := &Classifier{Completer: fakeCompleter{reply: "I think a bar chart is best"}}
	spec, _ := classifier.Suggest(context.Background(), "show revenue as a scatter", []string{"customer", "revenue"})
	if spec != (Spec{Type: "scatter", X: "customer", Y: "revenue"}) {
		t.Fatalf("spec = %+v", spec)
	}
}

func TestSuggestFallsBackOnModelError(t *testing.T) {
	classifier := &Classifier{Completer: fakeCompleter{err: errors.New("down")}}
	spec, _ := classifier.Suggest(context.Background(), "orders per year", []string{"total"})
	if spec != (Spec{Type: DefaultType, X: "total", Y: "total"}) {
		t.Fatalf("spec = %+v", spec)
	}
}

func TestSuggestReplacesUnknownColumnsAndHonoursUserType(t *testing.T) {
	classifier := &Classifier{Completer: fakeCompleter{reply: `{"chart_type":"line","x":"Month","y":"sales"}`}}
	spec, _ := classifier.Suggest(context.Background(), "bar chart of revenue", []string{"month", "revenue", "orders"})
	if spec != (Spec{Type: "bar", X: "month", Y: "revenue"}) {
		t.Fatalf("spec = %+v", spec)
	}
}

func TestSuggestWithoutColumns(t *testing.T) {
	if _, ok := (&Classifier{}).Suggest(context.Background(), "plot", nil); ok {
		t.Fatal("Suggest() should report false without columns")
	}
}

func TestTitle(t *testing.T) {
	spec := Spec{Type: "bar", X: "category_name", Y: "total_sales"}
	if got := spec.Title(); got != "Bar Chart of total_sales vs category_name" {
		t.Fatalf("Title() = %q", got)
	}
}
