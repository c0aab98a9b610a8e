package llm

import (
	"strings"

	"github.com/teilomillet/personatune/providers"
)

// PromptMessage is a prior conversation turn sent ahead of the prompt input.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt represents a structured prompt for an LLM. Input, Directives and
// Output make up the final user turn; SystemPrompt and Messages precede it.
type Prompt struct {
	SystemPrompt string          `json:"system_prompt,omitempty"`
	Messages     []PromptMessage `json:"messages,omitempty"`
	Input        string          `json:"input"`
	Directives   []string        `json:"directives,omitempty"`
	Output       string          `json:"output,omitempty"`
}

// PromptOption is a function type that modifies a Prompt
type PromptOption func(*Prompt)

// NewPrompt creates a new Prompt
func NewPrompt(input string, opts ...PromptOption) *Prompt {
	p := &Prompt{Input: input}
	p.Apply(opts...)
	return p
}

// Apply applies the given options to the Prompt
func (p *Prompt) Apply(opts ...PromptOption) {
	for _, opt := range opts {
		opt(p)
	}
}

func WithSystemPrompt(prompt string) PromptOption {
	return func(p *Prompt) {
		p.SystemPrompt = prompt
	}
}

// WithMessage appends a prior turn.
func WithMessage(role, content string) PromptOption {
	return func(p *Prompt) {
		p.Messages = append(p.Messages, PromptMessage{Role: role, Content: content})
	}
}

func WithDirectives(directives ...string) PromptOption {
	return func(p *Prompt) {
		p.Directives = append(p.Directives, directives...)
	}
}

func WithOutput(output string) PromptOption {
	return func(p *Prompt) {
		p.Output = output
	}
}

// String returns the formatted final user turn.
func (p *Prompt) String() string {
	var sb strings.Builder

	if len(p.Directives) > 0 {
		sb.WriteString("Directives:\n")
		for _, d := range p.Directives {
			sb.WriteString("- ")
			sb.WriteString(d)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(p.Input)

	if p.Output != "" {
		sb.WriteString("\n\n")
		sb.WriteString(p.Output)
	}

	return sb.String()
}

// Request converts the prompt into a provider request.
func (p *Prompt) Request() *providers.Request {
	rb := providers.NewRequestBuilder().WithSystemPrompt(p.SystemPrompt)
	for _, m := range p.Messages {
		rb.WithMessage(m.Role, m.Content)
	}
	return rb.WithPrompt(p.String()).Build()
}
