// Package program describes a single-step LM task: a signature naming its
// input and output fields, the instructions the optimizer tunes, and the
// optional demonstrations sent ahead of each call.
package program

import (
	"errors"
	"fmt"
	"strings"
)

// Field is one named slot of a signature.
type Field struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

// Label is the prefix used for the field in prompts and replies,
// e.g. "Raw Answer" for raw_answer.
func (f Field) Label() string {
	words := strings.Split(f.Name, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Signature is the contract of a task.
type Signature struct {
	Name         string  `json:"name"`
	Instructions string  `json:"instructions" validate:"required"`
	Inputs       []Field `json:"inputs" validate:"required,min=1,dive"`
	Outputs      []Field `json:"outputs" validate:"required,min=1,dive"`
}

// WithInstructions returns a copy of s carrying instructions.
func (s Signature) WithInstructions(instructions string) Signature {
	c := s.clone()
	c.Instructions = instructions
	return c
}

func (s Signature) clone() Signature {
	c := s
	c.Inputs = append([]Field(nil), s.Inputs...)
	c.Outputs = append([]Field(nil), s.Outputs...)
	return c
}

// Validate checks the signature is usable.
func (s Signature) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid signature %q: %w", s.Name, err)
	}
	seen := make(map[string]bool)
	for _, f := range append(append([]Field(nil), s.Inputs...), s.Outputs...) {
		if seen[f.Name] {
			return fmt.Errorf("invalid signature %q: duplicate field %q", s.Name, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// ErrMissingInput is returned when a call omits a signature input.
var ErrMissingInput = errors.New("missing input field")

// checkInputs ensures every signature input is present and non-blank.
func (s Signature) checkInputs(inputs map[string]string) error {
	for _, f := range s.Inputs {
		if strings.TrimSpace(inputs[f.Name]) == "" {
			return fmt.Errorf("%w: %s", ErrMissingInput, f.Name)
		}
	}
	return nil
}
