package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/pawlabs/breedai-go/internal/rag"
)

// stubChatModel returns a canned message or error.
type stubChatModel struct {
	content string
	err     error
}

func (s *stubChatModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	return schema.AssistantMessage(s.content, nil), nil
}

func (s *stubChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("stub: streaming not supported")
}

func TestGenerator_ReturnsContent(t *testing.T) {
	t.Parallel()

	g, err := NewGenerator(&stubChatModel{content: "grounded answer"}, "llama3", 0)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	got, err := g.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "grounded answer" {
		t.Errorf("Generate = %q", got)
	}
	if g.ModelName() != "llama3" {
		t.Errorf("ModelName = %q", g.ModelName())
	}
}

func TestGenerator_WrapsBackendFailure(t *testing.T) {
	t.Parallel()

	g, err := NewGenerator(&stubChatModel{err: fmt.Errorf("connection refused")}, "llama3", 0)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	_, err = g.Generate(context.Background(), "prompt")
	if !errors.Is(err, rag.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
}

func TestGenerator_EmptyResponseIsUnavailable(t *testing.T) {
	t.Parallel()

	g, err := NewGenerator(&stubChatModel{content: ""}, "llama3", 0)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	_, err = g.Generate(context.Background(), "prompt")
	if !errors.Is(err, rag.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable for empty content, got %v", err)
	}
}

func TestNewGenerator_NilModel(t *testing.T) {
	t.Parallel()

	if _, err := NewGenerator(nil, "m", 0); err == nil {
		t.Fatal("expected error for nil chat model")
	}
}
