package domain

import (
	"errors"
	"fmt"
)

// ErrGenerateTimeout marks a generation attempt that exceeded its deadline.
var ErrGenerateTimeout = errors.New("generation timed out")

// ErrEmptyGeneration marks a generation that completed but produced only whitespace.
var ErrEmptyGeneration = errors.New("generator produced empty output")

// GenerationError carries the diagnostics of a failed generator invocation so
// the pipeline can embed them in fallback text.
type GenerationError struct {
	Mode   string // invocation convention that failed, e.g. "prompt-flag" or "positional"
	Err    error
	Stderr string
}

func (e *GenerationError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("generator failed (%s): %v: %s", e.Mode, e.Err, e.Stderr)
	}
	return fmt.Sprintf("generator failed (%s): %v", e.Mode, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
