// Package summarize turns query results into a plain-English explanation.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/godeye/godeye/internal/llm"
	"github.com/godeye/godeye/internal/query"
)

const (
	NoResults      = "No results found."
	DefaultMaxRows = 20
)

type Explainer struct {
	Completer  llm.Completer
	Model      string
	MaxRows    int
	LatestYear int
}

// Explain asks the model to describe result for a non-technical reader.
func (e *Explainer) Explain(ctx context.Context, question, sqlText string, result query.Result) (string, error) {
	if result.Empty() {
		return NoResults, nil
	}
	maxRows := e.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The user asked: %q\n", question)
	fmt.Fprintf(&b, "The following SQL query was used to get the data:\n%s\n", sqlText)
	if e.LatestYear > 0 {
		fmt.Fprintf(&b, "The latest data in the dataset is from %d.\n", e.LatestYear)
	}
	fmt.Fprintf(&b, "Here are the results:\n%s\n", MarkdownTable(result, maxRows))
	b.WriteString("Please explain in plain English:\n")
	b.WriteString("- What the data shows in response to the user's request\n")
	b.WriteString("- How the result was calculated\n")
	if e.LatestYear > 0 {
		fmt.Fprintf(&b, "- Mention that the latest data is from %d\n", e.LatestYear)
	}
	b.WriteString("Keep it concise and readable for a non-technical user.")

	request := llm.UserPrompt(b.String())
	request.Model = e.Model
	explanation, err := e.Completer.Complete(ctx, request)
	if err != nil {
		return "", fmt.Errorf("explain result: %w", err)
	}
	return explanation, nil
}
