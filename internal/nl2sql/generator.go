package nl2sql

import (
	"context"
	"fmt"
	"strings"

	"github.com/godeye/godeye/internal/llm"
)

// ModelGenerator sends the prompt as a single user message and returns the first choice.
type ModelGenerator struct {
	Completer llm.Completer
	Model     string
}

func (g *ModelGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	request := llm.UserPrompt(prompt)
	request.Model = g.Model
	text, err := g.Completer.Complete(ctx, request)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(StripCodeFences(text)) == "" {
		return "", fmt.Errorf("model returned empty SQL")
	}
	return text, nil
}
