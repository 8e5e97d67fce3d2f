package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindMatching(t *testing.T) {
	err := E(KindNotFound, "store.Load", "player %q", "p1")
	wrapped := fmt.Errorf("gate: load: %w", err)

	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("expected wrapped error to match ErrNotFound")
	}
	if errors.Is(wrapped, ErrAlreadyExists) {
		t.Fatalf("wrapped not_found must not match already_exists")
	}
	if got := KindOf(wrapped); got != KindNotFound {
		t.Errorf("KindOf() = %s, want %s", got, KindNotFound)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain) = %s, want %s", got, KindInternal)
	}
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindInternal, "store.Save", cause)
	if err.Error() != "store.Save: internal: disk full" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be reachable through Unwrap")
	}
}

func TestClassification(t *testing.T) {
	if !IsRetryable(ErrLockTimeout) {
		t.Error("lock timeout should be retryable")
	}
	if IsRetryable(ErrInvalidAmount) {
		t.Error("invalid amount should not be retryable")
	}
	if !IsValidation(E(KindEmptyInput, "", "no players")) {
		t.Error("empty input is a validation failure")
	}
	if IsValidation(ErrLockTimeout) {
		t.Error("lock timeout is not a validation failure")
	}
}
