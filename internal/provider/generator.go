package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/pawlabs/breedai-go/internal/rag"
)

// defaultGenerateTimeout bounds a single generation call so a hung backend
// cannot stall the query pipeline indefinitely.
const defaultGenerateTimeout = 2 * time.Minute

// Generator adapts an eino ChatModel to the rag.Generator interface.
// Failures are reported as rag.ErrGenerationUnavailable so callers can
// distinguish a backend outage from a validation problem and apply their
// own retry policy.
type Generator struct {
	// chat is the underlying chat model.
	chat model.BaseChatModel
	// modelName identifies the model for response attribution.
	modelName string
	// timeout bounds each Generate call.
	timeout time.Duration
}

// NewGenerator wraps chat as a rag.Generator. A timeout of 0 selects the
// default.
func NewGenerator(chat model.BaseChatModel, modelName string, timeout time.Duration) (*Generator, error) {
	if chat == nil {
		return nil, fmt.Errorf("provider: chat model must not be nil")
	}
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}
	return &Generator{chat: chat, modelName: modelName, timeout: timeout}, nil
}

// NewGeneratorFromEnv constructs the configured backend and wraps it.
func NewGeneratorFromEnv(ctx context.Context) (*Generator, error) {
	chat, err := NewFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	return NewGenerator(chat, modelNameFromEnv(), 0)
}

// Generate sends the prompt as a single user message and returns the model's
// text response. Transport failures, timeouts and cancellation all surface
// as rag.ErrGenerationUnavailable.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	msg, err := g.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("%w: %s backend: %v", rag.ErrGenerationUnavailable, g.modelName, err)
	}
	if msg == nil || msg.Content == "" {
		return "", fmt.Errorf("%w: %s backend returned an empty response", rag.ErrGenerationUnavailable, g.modelName)
	}
	return msg.Content, nil
}

// ModelName returns the model identifier used for response attribution.
func (g *Generator) ModelName() string {
	return g.modelName
}

// modelNameFromEnv resolves the active model name the same way NewFromEnv
// resolves the backend config.
func modelNameFromEnv() string {
	switch Backend(getEnvOrDefault("MODEL_PROVIDER", string(BackendOllama))) {
	case BackendOpenAI:
		return getEnvOrDefault("OPENAI_MODEL", "gpt-4o")
	case BackendAzure:
		return getEnvOrDefault("AZURE_OPENAI_DEPLOYMENT", "azure")
	case BackendBedrock:
		return getEnvOrDefault("BEDROCK_MODEL_ID", "bedrock")
	case BackendGemini:
		return getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-pro")
	default:
		return getEnvOrDefault("OLLAMA_MODEL", "llama3")
	}
}
