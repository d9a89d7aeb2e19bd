package rag

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/litreview/internal/llm"
)

// DefaultSystemPrompt establishes the assistant persona for generation.
const DefaultSystemPrompt = "You are a professional academic assistant who specialises in writing literature reviews."

// userPromptTemplate embeds retrieved context first, then the requirements.
const userPromptTemplate = `Based on the following context:
%s

Write one review paragraph that follows the requirements below. Do not answer anything unrelated to the requirements and do not use markdown formatting. Requirements: %s`

// BuildUserPrompt renders the user message sent to the model.
func BuildUserPrompt(retrieved, prompt string) string {
	return fmt.Sprintf(userPromptTemplate, retrieved, prompt)
}

// Generator produces review text from a prompt and retrieved context.
type Generator struct {
	provider     llm.Provider
	model        string
	systemPrompt string
	maxTokens    int
	temperature  float64
}

// GeneratorConfig tunes the completion request. Zero values keep the
// backend defaults; an empty SystemPrompt uses DefaultSystemPrompt.
type GeneratorConfig struct {
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

func NewGenerator(provider llm.Provider, cfg GeneratorConfig) *Generator {
	sp := cfg.SystemPrompt
	if sp == "" {
		sp = DefaultSystemPrompt
	}
	return &Generator{
		provider:     provider,
		model:        cfg.Model,
		systemPrompt: sp,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
	}
}

// Generate makes exactly one completion call and returns the first choice
// unmodified. Failures are reported as *GenerationError.
func (g *Generator) Generate(ctx context.Context, prompt, retrieved string) (string, error) {
	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Model: g.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: g.systemPrompt},
			{Role: llm.RoleUser, Content: BuildUserPrompt(retrieved, prompt)},
		},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", generationErr(err)
	}
	return resp.Content, nil
}

// Chat forwards a caller-built conversation. model overrides the
// configured model when non-empty.
func (g *Generator) Chat(ctx context.Context, model string, messages []llm.Message) (*llm.CompletionResponse, error) {
	if len(messages) == 0 {
		return nil, &ValidationError{Field: "messages", Message: "at least one message is required"}
	}
	if model == "" {
		model = g.model
	}
	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return nil, generationErr(err)
	}
	return resp, nil
}
