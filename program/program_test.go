package program

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/personatune/llm"
)

func testSignature() Signature {
	return Signature{
		Name:         "Rephrase",
		Instructions: "Answer in character.",
		Inputs: []Field{
			{Name: "persona", Description: "the character to speak as"},
			{Name: "raw_answer"},
		},
		Outputs: []Field{{Name: "response", Description: "in-character response"}},
	}
}

var testInputs = map[string]string{"persona": "pirate", "raw_answer": "Python and Rust."}

func TestFieldLabel(t *testing.T) {
	assert.Equal(t, "Raw Answer", Field{Name: "raw_answer"}.Label())
	assert.Equal(t, "Persona", Field{Name: "persona"}.Label())
}

func TestSignatureValidate(t *testing.T) {
	require.NoError(t, testSignature().Validate())

	sig := testSignature()
	sig.Instructions = ""
	assert.Error(t, sig.Validate())

	sig = testSignature()
	sig.Outputs = append(sig.Outputs, Field{Name: "persona"})
	assert.ErrorContains(t, sig.Validate(), "duplicate field")
}

func TestBuildPrompt(t *testing.T) {
	demos := []Demo{{"persona": "robot", "raw_answer": "Go.", "response": "BEEP. GO."}}
	prompt, err := BuildPrompt(testSignature(), demos, testInputs)
	require.NoError(t, err)

	assert.Contains(t, prompt.SystemPrompt, "Answer in character.")
	assert.Contains(t, prompt.SystemPrompt, "1. Persona: the character to speak as")
	assert.Contains(t, prompt.SystemPrompt, "2. Raw Answer\n")
	assert.Contains(t, prompt.SystemPrompt, "1. Response: in-character response")

	require.Len(t, prompt.Messages, 2)
	assert.Equal(t, "Persona: robot\nRaw Answer: Go.", prompt.Messages[0].Content)
	assert.Equal(t, "Response: BEEP. GO.", prompt.Messages[1].Content)

	assert.Equal(t, "Persona: pirate\nRaw Answer: Python and Rust.", prompt.Input)
	assert.Equal(t, "Respond with Response:", prompt.Output)
}

func TestParseOutput(t *testing.T) {
	sig := testSignature()
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"labelled", "Response: Arr, Python and Rust!", "Arr, Python and Rust!"},
		{"bold label", "**Response:** Arr!", "Arr!"},
		{"raw name", "response: Arr!", "Arr!"},
		{"preamble", "Sure thing.\nResponse: Arr!\nMore arr.", "Arr!\nMore arr."},
		{"unlabelled", "  Arr, matey!  ", "Arr, matey!"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOutput(sig, tt.reply).Get("response"))
		})
	}
}

func TestParseOutputMultipleFields(t *testing.T) {
	sig := testSignature()
	sig.Outputs = append(sig.Outputs, Field{Name: "mood"})

	pred := ParseOutput(sig, "Response: Arr!\nMood: jolly")
	assert.Equal(t, "Arr!", pred.Get("response"))
	assert.Equal(t, "jolly", pred.Get("mood"))

	pred = ParseOutput(sig, "no labels at all")
	assert.Empty(t, pred)
}

func TestForward(t *testing.T) {
	lm := llm.NewMockLLM("student", "Response: Arr, I know Python and Rust!")
	p := NewPredict(testSignature())

	pred, err := p.Forward(context.Background(), lm, testInputs)
	require.NoError(t, err)
	assert.Equal(t, "Arr, I know Python and Rust!", pred.Get("response"))
	assert.Equal(t, 1, lm.Calls())
}

func TestForwardErrors(t *testing.T) {
	p := NewPredict(testSignature())

	_, err := p.Forward(context.Background(), llm.NewMockLLM("student"), map[string]string{"persona": "pirate"})
	assert.ErrorIs(t, err, ErrMissingInput)

	boom := errors.New("connection refused")
	lm := llm.NewMockLLMFunc("student", func(*llm.Prompt) (string, error) { return "", boom })
	_, err = p.Forward(context.Background(), lm, testInputs)
	assert.ErrorIs(t, err, boom)

	_, err = p.Forward(context.Background(), llm.NewMockLLM("student", "Response:   "), testInputs)
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

func TestCloneIsIndependent(t *testing.T) {
	p := NewPredict(testSignature()).WithDemos([]Demo{{"persona": "robot"}})
	c := p.WithInstructions("Be louder.")
	c.Demos[0]["persona"] = "ghost"
	c.Signature.Inputs[0].Name = "changed"

	assert.Equal(t, "Answer in character.", p.Instructions())
	assert.Equal(t, "Be louder.", c.Instructions())
	assert.Equal(t, "robot", p.Demos[0]["persona"])
	assert.Equal(t, "persona", p.Signature.Inputs[0].Name)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "optimized_program.json")
	p := NewPredict(testSignature()).WithInstructions("Speak like a pirate, keep every fact.")

	meta := Metadata{RunID: "run-1", StudentModel: "smollm2:latest", BaselineScore: 0.5, BestScore: 0.9, NumTrials: 15}
	require.NoError(t, Save(path, p, meta))

	loaded, gotMeta, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, p.Signature, loaded.Signature)
	assert.Empty(t, loaded.Demos)
	assert.Equal(t, "run-1", gotMeta.RunID)
	assert.InDelta(t, 0.9, gotMeta.BestScore, 1e-9)
	assert.False(t, gotMeta.SavedAt.IsZero())
}

func TestLoadErrors(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
