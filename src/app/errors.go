package app

import (
	"errors"
	"strings"
)

var (
	// repository specific errors
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// credential errors
	ErrMissingCredential = errors.New("missing credential")
	ErrUnauthorized      = errors.New("unauthorized")

	// media errors
	ErrUnsupportedMediaType = errors.New("only images are allowed")
	ErrInvalidLocator       = errors.New("invalid image url")
	ErrUpstream             = errors.New("image host failure")

	ErrInvalidArgument = errors.New("invalid argument")
)

// ValidationError lists the request fields that are missing or malformed.
type ValidationError struct {
	Fields []string
}

func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid argument"
	}
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}
