package providers

import (
	"github.com/invopop/jsonschema"
)

// Request represents a unified chat request.
type Request struct {
	ResponseSchema *jsonschema.Schema `json:"response_schema,omitempty"`
	SchemaName     string             `json:"schema_name,omitempty"`
	SystemPrompt   string             `json:"system_prompt,omitempty"`
	Messages       []Message          `json:"messages"`
}

// Message represents a single message in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response represents the response from an LLM model.
type Response struct {
	Content Content
	Usage   *Usage
}

// Content is a sealed interface for different types of content in a response. Currently, text content only.
type Content interface {
	isContent()
}

// AsText extracts the text content from the response.
func (r *Response) AsText() string {
	if r == nil {
		return ""
	}
	if textContent, ok := r.Content.(Text); ok {
		return textContent.Value
	}
	return ""
}

// Text represents text content in a response.
type Text struct {
	Value string
}

func (t Text) isContent() {}

// Usage represents the token usage information for a response.
type Usage struct {
	InputTokens       int64 `json:"input_tokens"`
	CachedInputTokens int64 `json:"cached_input_tokens"`
	OutputTokens      int64 `json:"output_tokens"`
	TotalTokens       int64 `json:"total_tokens"`
	// Estimated is set when the counts were computed locally because the
	// backend did not report usage.
	Estimated bool `json:"estimated"`
}

func NewUsage(inputTokens, cachedInputTokens, outputTokens int64) *Usage {
	return &Usage{
		InputTokens:       inputTokens,
		CachedInputTokens: cachedInputTokens,
		OutputTokens:      outputTokens,
		TotalTokens:       inputTokens + outputTokens,
	}
}

// Add accumulates other into u.
func (u *Usage) Add(other *Usage) {
	if other == nil {
		return
	}
	u.InputTokens += other.InputTokens
	u.CachedInputTokens += other.CachedInputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
	u.Estimated = u.Estimated || other.Estimated
}
