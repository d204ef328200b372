package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	withCause := NewParsingError("bad input", ErrInvalidJSON)
	assert.Equal(t, "parsing: bad input: invalid JSON format", withCause.Error())

	withoutCause := NewInputError("no file", nil)
	assert.Equal(t, "input: no file", withoutCause.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	err := NewInputError("missing", ErrFileNotFound)
	assert.ErrorIs(t, err, ErrFileNotFound)

	wrapped := fmt.Errorf("while loading: %w", err)
	assert.ErrorIs(t, wrapped, ErrFileNotFound)
}

func TestAppError_IsMatchesType(t *testing.T) {
	err := NewValidationError("mismatch", nil)
	assert.True(t, errors.Is(err, &AppError{Type: ErrorTypeValidation}))
	assert.False(t, errors.Is(err, &AppError{Type: ErrorTypeSchema}))
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected ErrorType
	}{
		{"input", NewInputError("m", nil), ErrorTypeInput},
		{"parsing", NewParsingError("m", nil), ErrorTypeParsing},
		{"inference", NewInferenceError("m", nil), ErrorTypeInference},
		{"annotation", NewAnnotationError("m", nil), ErrorTypeAnnotation},
		{"schema", NewSchemaError("m", nil), ErrorTypeSchema},
		{"validation", NewValidationError("m", nil), ErrorTypeValidation},
		{"output", NewOutputError("m", nil), ErrorTypeOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Type)
			assert.Equal(t, "m", tt.err.Message)
		})
	}
}

func TestUserFriendlyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			"app error input",
			NewInputError("file 'x.json' not found", ErrFileNotFound),
			"Input error: file 'x.json' not found",
		},
		{
			"app error parsing",
			NewParsingError("JSON syntax error at offset 4", ErrInvalidJSON),
			"JSON parsing error: JSON syntax error at offset 4",
		},
		{
			"app error schema",
			NewSchemaError("invalid schema", ErrSchemaInvalid),
			"Schema error: invalid schema",
		},
		{
			"app error validation",
			NewValidationError("1 document failed", ErrValidationFail),
			"Validation error: 1 document failed",
		},
		{
			"bare sentinel",
			ErrEmptyInput,
			"Error: The input is empty. Please provide valid JSON data.",
		},
		{
			"bare no input",
			ErrNoInput,
			"Error: No input provided. Please specify a file with -i or pipe JSON data to stdin.",
		},
		{
			"unknown error",
			errors.New("boom"),
			"Error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, UserFriendlyError(tt.err))
		})
	}
}
