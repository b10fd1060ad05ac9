package nl2sql

import (
	"context"
	"testing"

	"github.com/godeye/godeye/internal/llm"
)

type fakeCompleter struct {
	reply   string
	request llm.Request
}

func (c *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	c.request = req
	return c.reply, nil
}

func TestModelGeneratorSendsPromptAsUserMessage(t *testing.T) {
	completer := &fakeCompleter{reply: "SELECT 1"}
	generator := &ModelGenerator{Completer: completer, Model: "gpt-4o-mini"}

	got, err := generator.Generate(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "SELECT 1" {
		t.Fatalf("Generate() = %q", got)
	}
	if completer.request.Model != "gpt-4o-mini" {
		t.Fatalf("model = %q", completer.request.Model)
	}
	if len(completer.request.Messages) != 1 || completer.request.Messages[0].Content != "the prompt" {
		t.Fatalf("messages = %+v", completer.request.Messages)
	}
}

func TestModelGeneratorRejectsEmptySQL(t *testing.T) {
	generator := &ModelGenerator{Completer: &fakeCompleter{reply: "```sql\n```"}}
	if _, err := generator.Generate(context.Background(), "p"); err == nil {
		t.Fatal("expected empty SQL error")
	}
}
