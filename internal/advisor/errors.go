package advisor

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned for every call made by a client that was
// constructed without a Gemini API key.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not configured")

// AdviceGenerationError is the only failure kind of the advice boundary.
// Message is safe to show to the user as is.
type AdviceGenerationError struct {
	Message string
	Err     error
}

func (e *AdviceGenerationError) Error() string {
	return e.Message
}

func (e *AdviceGenerationError) Unwrap() error {
	return e.Err
}

// NewAdviceError wraps err into an AdviceGenerationError. An error that
// already is one is returned unchanged.
func NewAdviceError(err error) *AdviceGenerationError {
	var adviceErr *AdviceGenerationError
	if errors.As(err, &adviceErr) {
		return adviceErr
	}
	if err == nil {
		return &AdviceGenerationError{Message: "An unknown error occurred while fetching AI advice."}
	}
	return &AdviceGenerationError{
		Message: fmt.Sprintf("Failed to get advice from AI: %v", err),
		Err:     err,
	}
}
