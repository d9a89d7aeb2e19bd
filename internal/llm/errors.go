package llm

import (
	"errors"
	"fmt"
)

// ErrNoChoices is returned when a backend answers without any completion.
var ErrNoChoices = errors.New("response contained no choices")

// UpstreamError is a non-success answer from the model backend.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Detail     string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Detail)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
