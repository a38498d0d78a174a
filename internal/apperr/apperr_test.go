package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsSurviveWrapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"invalid field", Invalid("amount", "must be positive"), ErrValidation},
		{"not found", NotFound("reminder", "abc"), ErrNotFound},
		{"conflict", Conflict("reminder %s already confirmed", "abc"), ErrConflict},
		{"forbidden", Forbidden("only the owner may edit"), ErrForbidden},
		{"dependency", Dependency("payment provider", errors.New("timeout")), ErrDependency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: []FieldError{
		{Field: "amount", Message: "must be positive"},
		{Field: "shares", Message: "required"},
	}}

	assert.Equal(t, "validation failed: amount: must be positive; shares: required", err.Error())

	var ve *ValidationError
	assert.True(t, errors.As(fmt.Errorf("create: %w", err), &ve))
	assert.Len(t, ve.Fields, 2)
}

func TestValidate(t *testing.T) {
	type payment struct {
		Email  string `json:"email" validate:"required,email"`
		Method string `json:"method" validate:"oneof=bank_transfer hosted"`
		Parts  []int  `json:"parts" validate:"min=1,dive,gte=0"`
	}

	assert.NoError(t, Validate(payment{Email: "a@example.com", Method: "hosted", Parts: []int{1}}))

	err := Validate(payment{Email: "nope", Method: "cash", Parts: []int{-1}})
	assert.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	if assert.True(t, errors.As(err, &verr)) {
		assert.Equal(t, []FieldError{
			{Field: "email", Message: "must be an email address"},
			{Field: "method", Message: "must be one of bank_transfer hosted"},
			{Field: "parts[0]", Message: "must be at least 0"},
		}, verr.Fields)
	}
}
