// Package persona defines the persona rephrasing task and the LM judge that
// scores it.
package persona

import (
	"context"

	"github.com/teilomillet/personatune/dataset"
	"github.com/teilomillet/personatune/llm"
	"github.com/teilomillet/personatune/program"
)

// RephraseInstructions is the untuned task instruction.
const RephraseInstructions = "Answer the question in character as the given persona, using only the provided facts."

// RephraseSignature maps (persona, query, raw_answer) to an in-character response.
func RephraseSignature() program.Signature {
	return program.Signature{
		Name:         "PersonaRephrase",
		Instructions: RephraseInstructions,
		Inputs: []program.Field{
			{Name: dataset.FieldPersona, Description: "the character to speak as"},
			{Name: dataset.FieldQuery, Description: "the original question"},
			{Name: dataset.FieldRawAnswer, Description: "factual answer to draw from, do not invent new facts"},
		},
		Outputs: []program.Field{
			{Name: dataset.FieldResponse, Description: "in-character response"},
		},
	}
}

// NewRephrase returns the rephrase task with its original instructions.
func NewRephrase() *program.Predict {
	return program.NewPredict(RephraseSignature())
}

// Rephrase runs task on ex through the student backend and returns the response text.
func Rephrase(ctx context.Context, task *program.Predict, student llm.LLM, ex dataset.Example) (string, error) {
	pred, err := task.Forward(ctx, student, ex.Inputs())
	if err != nil {
		return "", err
	}
	return pred.Get(dataset.FieldResponse), nil
}
