// Package validator provides request validation infrastructure.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator for struct validation.
type Validator struct {
	validate *validator.Validate
}

// New creates a new validator instance.
func New() *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Struct validates a struct based on its `validate` tags.
func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

// Var validates a single variable against the given tag.
func (v *Validator) Var(field interface{}, tag string) error {
	return v.validate.Var(field, tag)
}
