package models

import (
	"errors"
	"fmt"
)

var ErrMissingField = errors.New("missing field")

// MissingFieldError reports a required multipart field that was not submitted.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingField, e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// Validate checks the prompt before the image, so a request lacking both
// reports the prompt.
func (r GenerationRequest) Validate() error {
	if r.Prompt == "" {
		return &MissingFieldError{Field: "prompt"}
	}
	if r.Image == nil {
		return &MissingFieldError{Field: "image"}
	}
	return nil
}
