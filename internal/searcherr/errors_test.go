package searcherr

import (
	"errors"
	"strings"
	"testing"
)

func TestNewLLMUnavailable_WrapsSentinel(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewLLMUnavailable(cause)
	if !errors.Is(err, ErrLLMUnavailable) {
		t.Errorf("expected errors.Is to match ErrLLMUnavailable")
	}
	if err.Error() == ErrLLMUnavailable.Error() {
		t.Errorf("expected wrapped error message to include the cause")
	}
}

func TestNewProfileNotFound_IncludesUserID(t *testing.T) {
	err := NewProfileNotFound("999")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected errors.Is to match ErrProfileNotFound")
	}
	if !strings.Contains(err.Error(), "999") {
		t.Errorf("expected error message to include the user id, got %q", err.Error())
	}
}

func TestWrapped_NilCauseOmitsSeparator(t *testing.T) {
	err := NewEmbeddingUnavailable(nil)
	if err.Error() != ErrEmbeddingUnavailable.Error() {
		t.Errorf("expected bare sentinel message for nil cause, got %q", err.Error())
	}
}
