package rag

import (
	"errors"
	"fmt"

	"github.com/ziadkadry99/litreview/internal/llm"
)

// GenerationError wraps any failure of the model backend: transport
// errors, non-success status, or a response without a usable choice.
type GenerationError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation failed (upstream status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("generation failed: %s", e.Detail)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func generationErr(err error) error {
	var up *llm.UpstreamError
	if errors.As(err, &up) {
		return &GenerationError{StatusCode: up.StatusCode, Detail: up.Detail, Err: err}
	}
	return &GenerationError{Detail: err.Error(), Err: err}
}

// ValidationError reports a malformed request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
