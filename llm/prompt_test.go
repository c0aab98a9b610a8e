package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptString(t *testing.T) {
	p := NewPrompt("Query: where is the treasure?",
		WithDirectives("Stay in character", "Keep every fact"),
		WithOutput("Response:"),
	)

	want := "Directives:\n- Stay in character\n- Keep every fact\n\nQuery: where is the treasure?\n\nResponse:"
	assert.Equal(t, want, p.String())
}

func TestPromptRequest(t *testing.T) {
	p := NewPrompt("final",
		WithSystemPrompt("sys"),
		WithMessage("user", "demo in"),
		WithMessage("assistant", "demo out"),
	)

	req := p.Request()
	assert.Equal(t, "sys", req.SystemPrompt)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "assistant", req.Messages[1].Role)
	assert.Equal(t, "final", req.Messages[2].Content)
}

func TestPromptWithSchemaLeavesOriginal(t *testing.T) {
	p := NewPrompt("in", WithOutput("out"))
	withSchema, err := promptWithSchema(p, SchemaFor(&struct {
		A string `json:"a"`
	}{}))
	require.NoError(t, err)

	assert.Equal(t, "out", p.Output)
	assert.Contains(t, withSchema.Output, "out")
	assert.Contains(t, withSchema.Output, `"a"`)
}

func TestValidatePrompt(t *testing.T) {
	type fields struct {
		Input string `validate:"notblank"`
	}
	assert.NoError(t, Validate(fields{Input: "x"}))
	assert.Error(t, Validate(fields{Input: "  "}))
}
