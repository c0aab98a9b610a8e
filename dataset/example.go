// Package dataset holds the persona rephrasing examples and the positional
// train/validation split used by a tuning run.
package dataset

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Input field names, in prompt order.
const (
	FieldPersona   = "persona"
	FieldQuery     = "query"
	FieldRawAnswer = "raw_answer"
	FieldResponse  = "response"
)

// InputKeys lists the fields fed to the rephrase task.
var InputKeys = []string{FieldPersona, FieldQuery, FieldRawAnswer}

// Example is one rephrasing case. Response is an optional reference answer
// used only for labeled demos.
type Example struct {
	Persona   string `yaml:"persona" json:"persona" validate:"required,notblank"`
	Query     string `yaml:"query" json:"query" validate:"required,notblank"`
	RawAnswer string `yaml:"raw_answer" json:"raw_answer" validate:"required,notblank"`
	Response  string `yaml:"response,omitempty" json:"response,omitempty"`
}

// Inputs returns the input fields keyed by name.
func (e Example) Inputs() map[string]string {
	return map[string]string{
		FieldPersona:   e.Persona,
		FieldQuery:     e.Query,
		FieldRawAnswer: e.RawAnswer,
	}
}

// HasLabel reports whether the example carries a reference response.
func (e Example) HasLabel() bool {
	return e.Response != ""
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", notBlank); err != nil {
		panic(fmt.Sprintf("failed to register notblank validator: %v", err))
	}
	return v
}

// Validate checks that every input is present.
func (e Example) Validate() error {
	return validate.Struct(e)
}

// ValidateAll validates each example and reports the first bad index.
func ValidateAll(examples []Example) error {
	for i, ex := range examples {
		if err := ex.Validate(); err != nil {
			return fmt.Errorf("example %d: %w", i, err)
		}
	}
	return nil
}
