package apperr_test

import (
	"errors"
	"testing"

	"github.com/AprovanLabs/apprentice/internal/apperr"
)

func TestNotFoundf_IsNotFound(t *testing.T) {
	err := apperr.NotFoundf("context %q", "my-ctx")
	if !apperr.IsNotFound(err) {
		t.Fatal("expected NotFoundf to produce a NotFound error")
	}
	if apperr.IsInvalidInput(err) || apperr.IsTransient(err) {
		t.Fatal("expected NotFoundf to not also match other kinds")
	}
}

func TestInvalidInputf_IsInvalidInput(t *testing.T) {
	err := apperr.InvalidInputf("bad query: %q", "")
	if !apperr.IsInvalidInput(err) {
		t.Fatal("expected InvalidInputf to produce an InvalidInput error")
	}
}

func TestTransientf_WrapsCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := apperr.Transientf(cause, "checkpoint")
	if !apperr.IsTransient(err) {
		t.Fatal("expected Transientf to produce a Transient error")
	}
}

func TestSkipError_UnwrapsToCause(t *testing.T) {
	cause := errors.New("malformed line")
	err := apperr.Skipf("bash.log:42", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected SkipError to unwrap to its cause")
	}
	var se *apperr.SkipError
	if !errors.As(err, &se) {
		t.Fatal("expected errors.As to find the SkipError")
	}
	if se.Item != "bash.log:42" {
		t.Fatalf("expected item %q, got %q", "bash.log:42", se.Item)
	}
}
