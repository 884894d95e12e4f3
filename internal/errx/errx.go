// Package errx provides thin helpers for wrapping sentinel errors with
// additional context while keeping errors.Is/errors.As working against the
// sentinel.
package errx

import "fmt"

// Wrap combines a sentinel error with a causing error so that
// errors.Is(result, sentinel) and errors.Is(result, cause) both hold.
func Wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// With combines a sentinel error with a formatted message. The format string
// may itself contain a %w verb to additionally wrap a causing error.
func With(sentinel error, format string, args ...any) error {
	if format == "" {
		return sentinel
	}
	return fmt.Errorf("%w"+format, append([]any{sentinel}, args...)...)
}
