package providers

import "github.com/invopop/jsonschema"

// RequestBuilder helps construct Request objects
type RequestBuilder struct {
	responseSchema *jsonschema.Schema
	schemaName     string
	systemPrompt   string
	messages       []Message
}

// NewRequestBuilder creates a new request builder
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{
		messages: []Message{},
	}
}

// WithPrompt adds a user message
func (rb *RequestBuilder) WithPrompt(prompt string) *RequestBuilder {
	return rb.WithMessage("user", prompt)
}

// WithMessages adds multiple messages
func (rb *RequestBuilder) WithMessages(messages []Message) *RequestBuilder {
	rb.messages = append(rb.messages, messages...)
	return rb
}

// WithMessage adds a single message
func (rb *RequestBuilder) WithMessage(role, content string) *RequestBuilder {
	rb.messages = append(rb.messages, Message{
		Role:    role,
		Content: content,
	})
	return rb
}

// WithSystemPrompt sets the system prompt
func (rb *RequestBuilder) WithSystemPrompt(prompt string) *RequestBuilder {
	rb.systemPrompt = prompt
	return rb
}

// WithResponseSchema sets the structured response schema and its name
func (rb *RequestBuilder) WithResponseSchema(name string, schema *jsonschema.Schema) *RequestBuilder {
	rb.schemaName = name
	rb.responseSchema = schema
	return rb
}

// Build creates the final Request object
func (rb *RequestBuilder) Build() *Request {
	return &Request{
		Messages:       rb.messages,
		ResponseSchema: rb.responseSchema,
		SchemaName:     rb.schemaName,
		SystemPrompt:   rb.systemPrompt,
	}
}
