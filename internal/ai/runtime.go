// Package ai talks to the language-model runtimes that write report narratives.
//
// Two runtimes are built in: a local Ollama server, which is the default, and
// the OpenRouter chat-completions API. Both satisfy Runtime and report failures
// through the typed errors in errors.go so callers can tell an unreachable
// server from a timeout or a rejected request.
package ai

import "context"

// Runtime generates a single chat completion.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers accepted by --provider and the default_provider setting.
const (
	ProviderOllama     = "ollama"
	ProviderOpenRouter = "openrouter"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateRequest is the provider-neutral chat request.
type GenerateRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Choice struct {
	Message Message `json:"message"`
}

type GenerateResponse struct {
	ID        string   `json:"id"`
	Choices   []Choice `json:"choices"`
	Usage     Usage    `json:"usage"`
	RequestID string   `json:"-"`
}

// Text returns the content of the first choice, or "" when there is none.
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Prompt builds a one-message request carrying prompt as the user turn.
func Prompt(model, prompt string, temperature float64, maxTokens int) GenerateRequest {
	return GenerateRequest{
		Model:       model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}
