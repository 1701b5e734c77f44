package model

import (
	"errors"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("already exists")
	ErrInvalidID    = errors.New("invalid id format")
)

// FieldError is a single failed rule on an input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every failed rule of an input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}

	return "validation failed: " + strings.Join(msgs, "; ")
}

// First returns the first failed field, if any.
func (e *ValidationError) First() (FieldError, bool) {
	if len(e.Fields) == 0 {
		return FieldError{}, false
	}

	return e.Fields[0], true
}

// Message returns the message recorded for field, or "".
func (e *ValidationError) Message(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}

	return ""
}

// NewFieldError is a shortcut for a single-field ValidationError.
func NewFieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
