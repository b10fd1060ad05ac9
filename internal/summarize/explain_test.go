package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/godeye/godeye/internal/llm"
	"github.com/godeye/godeye/internal/query"
)

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
	calls  int
}

func (c *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	c.calls++
	c.prompt = req.Messages[0].Content
	return c.reply, c.err
}

func resultWithRows(n int) query.Result {
	columns := []string{"customer", "revenue"}
	result := query.Result{Columns: columns}
	for i := 0; i < n; i++ {
		result.Records = append(result.Records, query.NewRecord(columns, []any{"c" + string(rune('a'+i%26)), float64(i) * 1.5}))
	}
	return result
}

func TestExplainShortCircuitsEmptyResults(t *testing.T) {
	completer := &fakeCompleter{}
	explainer := &Explainer{Completer: completer}
	got, err := explainer.Explain(context.Background(), "q", "SELECT 1", query.Result{})
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if got != NoResults || completer.calls != 0 {
		t.Fatalf("Explain() = %q calls = %d", got, completer.calls)
	}
}

func TestExplainLimitsTableRowsAndMentionsLatestYear(t *testing.T) {
	completer := &fakeCompleter{reply: "Revenue grew."}
	explainer := &Explainer{Completer: completer, MaxRows: 3, LatestYear: 1998, Model: "summary"}

	got, err := explainer.Explain(context.Background(), "revenue by customer", "SELECT customers.customer FROM customers", resultWithRows(10))
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if got != "Revenue grew." {
		t.Fatalf("Explain() = %q", got)
	}
	if !strings.Contains(completer.prompt, "latest data in the dataset is from 1998") {
		t.Fatalf("prompt = %q", completer.prompt)
	}
	if !strings.Contains(completer.prompt, "| customer | revenue |") {
		t.Fatalf("prompt missing table header: %q", completer.prompt)
	}
	if strings.Contains(completer.prompt, "| cd |") {
		t.Fatalf("prompt should hold only 3 rows: %q", completer.prompt)
	}
}

func TestExplainWrapsModelErrors(t *testing.T) {
	explainer := &Explainer{Completer: &fakeCompleter{err: errors.New("down")}}
	if _, err := explainer.Explain(context.Background(), "q", "s", resultWithRows(1)); err == nil {
		t.Fatal("expected error")
	}
}

func TestFormatValue(t *testing.T) {
	day := time.Date(1998, 5, 6, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		value any
		want  string
	}{
		{nil, "NULL"},
		{[]byte("abc"), "abc"},
		{day, "1998-05-06"},
		{263.5, "263.50"},
		{int64(7), "7"},
	}
	for _, tc := range cases {
		if got := FormatValue(tc.value); got != tc.want {
			t.Fatalf("FormatValue(%#v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}
