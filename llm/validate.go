package llm

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance used across the package.
var validate *validator.Validate

func init() {
	validate = validator.New()

	if err := validate.RegisterValidation("notblank", validateNotBlank); err != nil {
		panic(fmt.Sprintf("failed to register notblank validator: %v", err))
	}
}

// validateNotBlank rejects strings made only of whitespace.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Validate checks if the given struct is valid according to its validation rules.
// It uses the go-playground/validator package to perform validation based on struct tags.
// Besides the built-in tags, "notblank" rejects whitespace-only strings.
func Validate(s any) error {
	return validate.Struct(s)
}

// RegisterCustomValidation registers a custom validation function with the validator.
func RegisterCustomValidation(tag string, fn validator.Func) error {
	return validate.RegisterValidation(tag, fn)
}
