package program

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/teilomillet/personatune/llm"
)

// ErrEmptyOutput is returned when the backend reply leaves an output field empty.
var ErrEmptyOutput = errors.New("empty output field")

// Prediction maps output field names to their text.
type Prediction map[string]string

// Get returns the named field, or "" when absent.
func (p Prediction) Get(name string) string {
	return p[name]
}

// Demo is a worked example: input and output values keyed by field name.
type Demo map[string]string

// Predict runs a signature against an LM with one call per Forward.
type Predict struct {
	Signature Signature
	Demos     []Demo
}

// NewPredict returns a Predict with no demos.
func NewPredict(sig Signature) *Predict {
	return &Predict{Signature: sig}
}

// Instructions returns the current task instructions.
func (p *Predict) Instructions() string {
	return p.Signature.Instructions
}

// Clone returns a deep copy so candidates never share state.
func (p *Predict) Clone() *Predict {
	c := &Predict{Signature: p.Signature.clone()}
	for _, d := range p.Demos {
		cd := make(Demo, len(d))
		for k, v := range d {
			cd[k] = v
		}
		c.Demos = append(c.Demos, cd)
	}
	return c
}

// WithInstructions returns a copy of p using instructions.
func (p *Predict) WithInstructions(instructions string) *Predict {
	c := p.Clone()
	c.Signature.Instructions = instructions
	return c
}

// WithDemos returns a copy of p using demos.
func (p *Predict) WithDemos(demos []Demo) *Predict {
	c := p.Clone()
	c.Demos = append([]Demo(nil), demos...)
	return c
}

// Prompt renders the prompt Forward would send.
func (p *Predict) Prompt(inputs map[string]string) (*llm.Prompt, error) {
	if err := p.Signature.checkInputs(inputs); err != nil {
		return nil, err
	}
	return BuildPrompt(p.Signature, p.Demos, inputs)
}

// Forward makes exactly one Generate call on lm and parses the reply.
// Backend errors are returned unchanged.
func (p *Predict) Forward(ctx context.Context, lm llm.LLM, inputs map[string]string) (Prediction, error) {
	prompt, err := p.Prompt(inputs)
	if err != nil {
		return nil, err
	}
	reply, err := lm.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	pred := ParseOutput(p.Signature, reply)
	for _, f := range p.Signature.Outputs {
		if strings.TrimSpace(pred[f.Name]) == "" {
			return pred, fmt.Errorf("%w: %s", ErrEmptyOutput, f.Name)
		}
	}
	return pred, nil
}
