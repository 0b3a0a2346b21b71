package schema

import (
	"context"

	"github.com/go-playground/validator/v10"
)

// -----------------------------------------------------------------------------
// Validator interface
// -----------------------------------------------------------------------------

type Validator interface {
	Validate(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// StructValidator
// -----------------------------------------------------------------------------

// StructValidator checks go-playground validate tags on a request struct.
type StructValidator struct {
	validate *validator.Validate
	value    any
}

func NewStructValidator(value any) *StructValidator {
	return &StructValidator{
		validate: validator.New(),
		value:    value,
	}
}

func (v *StructValidator) Validate(_ context.Context) error {
	return v.validate.Struct(v.value)
}

// -----------------------------------------------------------------------------
// ValueValidator
// -----------------------------------------------------------------------------

// ValueValidator checks a decoded value against a JSON schema.
type ValueValidator struct {
	schema Schema
	value  any
}

func NewValueValidator(s Schema, value any) *ValueValidator {
	return &ValueValidator{schema: s, value: value}
}

func (v *ValueValidator) Validate(ctx context.Context) error {
	if v.schema == nil {
		return nil
	}
	_, err := v.schema.Validate(ctx, v.value)
	return err
}
