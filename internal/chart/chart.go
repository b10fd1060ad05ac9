// Package chart decides whether a question wants a chart and which columns to plot.
package chart

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/godeye/godeye/internal/llm"
)

const DefaultType = "bar"

var (
	keywords = []string{"show", "visualize", "draw", "plot", "chart", "graph", "diagram", "display", "illustrate", "scatter", "bar", "line", "pie"}
	types    = []string{"bar", "line", "pie", "scatter", "area", "histogram"}
)

// Spec describes a chart for the front-end to render.
type Spec struct {
	Type string `json:"chart_type"`
	X    string `json:"x"`
	Y    string `json:"y"`
}

func (s Spec) Title() string {
	return fmt.Sprintf("%s Chart of %s vs %s", cases.Title(language.English).String(s.Type), s.Y, s.X)
}

// WantsChart reports whether text contains a visualisation keyword.
func WantsChart(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// RequestedType returns the first supported chart type named in text.
func RequestedType(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, chartType := range types {
		if strings.Contains(lower, chartType) {
			return chartType, true
		}
	}
	return "", false
}

// Fallback picks the requested type (or bar) over the first two columns.
func Fallback(question string, columns []string) Spec {
	chartType, ok := RequestedType(question)
	if !ok {
		chartType = DefaultType
	}
	return Spec{Type: chartType, X: columns[0], Y: defaultY(columns)}
}

func defaultY(columns []string) string {
	if len(columns) > 1 {
		return columns[1]
	}
	return columns[0]
}

type Classifier struct {
	Completer llm.Completer
	Model     string
}

// Suggest asks the model for a chart spec. Any model or parse failure yields Fallback;
// it reports false only when there are no columns to plot.
func (c *Classifier) Suggest(ctx context.Context, question string, columns []string) (Spec, bool) {
	if len(columns) == 0 {
		return Spec{}, false
	}
	if c.Completer == nil {
		return Fallback(question, columns), true
	}

	request := llm.Request{
		Model: c.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a helpful assistant specialized in chart generation."},
			{Role: llm.RoleUser, Content: classifierPrompt(question, columns)},
		},
	}
	reply, err := c.Completer.Complete(ctx, request)
	if err != nil {
		return Fallback(question, columns), true
	}
	return parseSpec(reply, question, columns), true
}

func parseSpec(reply, question string, columns []string) Spec {
	var spec Spec
	if err := json.Unmarshal([]byte(trimJSONFence(reply)), &spec); err != nil {
		return Fallback(question, columns)
	}
	if !slices.Contains(columns, spec.X) {
		spec.X = columns[0]
	}
	if !slices.Contains(columns, spec.Y) {
		spec.Y = defaultY(columns)
	}
	if requested, ok := RequestedType(question); ok {
		spec.Type = requested
	}
	if !slices.Contains(types, spec.Type) {
		spec.Type = DefaultType
	}
	return spec
}

func classifierPrompt(question string, columns []string) string {
	quoted := make([]string, 0, len(columns))
	for _, column := range columns {
		quoted = append(quoted, "'"+column+"'")
	}
	return fmt.Sprintf(`The user asked: %q
The data columns are: [%s]
IMPORTANT: You must be VERY sensitive to the exact spelling and capitalization (case) of the column names.
Only select columns from the provided list, matching their register exactly.
Do NOT invent or hallucinate any column names.
If the user specified a chart type (%s), you MUST use that chart type exactly.
Suggest the most suitable chart type and which columns to use for x and y axes (or values/labels for pie).
Respond as JSON: {"chart_type": "...", "x": "...", "y": "..."}`, question, strings.Join(quoted, ", "), strings.Join(types, ", "))
}

func trimJSONFence(reply string) string {
	trimmed := strings.TrimSpace(reply)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
