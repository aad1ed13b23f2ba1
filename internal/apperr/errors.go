// Package apperr defines the error taxonomy shared by every component:
// NotFound, InvalidInput, Transient, Skip, Fatal (spec §7).
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Components wrap these with fmt.Errorf("%w: ...", KindX)
// so callers can still errors.Is against the kind after wrapping.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTransient    = errors.New("transient failure")
	ErrFatal        = errors.New("fatal error")
)

// NotFoundf builds a NotFound error for the given subject.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidInputf builds an InvalidInput error.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Transientf wraps an underlying error (e.g. SQLite busy, HTTP timeout) as Transient.
func Transientf(cause error, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %v", ErrTransient, fmt.Sprintf(format, args...), cause)
}

// Fatalf builds a Fatal error (schema creation failure, inability to open the DB).
func Fatalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFatal, fmt.Sprintf(format, args...))
}

// IsNotFound reports whether err (or any error it wraps) is a NotFound error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidInput reports whether err is an InvalidInput error.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsTransient reports whether err is a Transient error.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// SkipError represents a per-item failure in a batch pass (event line, file,
// extractor, ref sync) that must be logged and counted but never propagated
// out of the pass. Passes collect these into a slice rather than returning
// early, mirroring the teacher's ExtractResult.Errors convention.
type SkipError struct {
	Item string
	Err  error
}

func (s *SkipError) Error() string { return fmt.Sprintf("skip %s: %v", s.Item, s.Err) }
func (s *SkipError) Unwrap() error { return s.Err }

// Skipf builds a SkipError for item, wrapping cause.
func Skipf(item string, cause error) error {
	return &SkipError{Item: item, Err: cause}
}
