package logging

import (
	"errors"
	"testing"
)

func TestNewOperationErrorNilPassthrough(t *testing.T) {
	if err := NewOperationError("handoff.put", "s-1", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestOperationErrorFormatsAndUnwraps(t *testing.T) {
	base := errors.New("boom")
	err := NewOperationError("classifier.classify", "s-1", base)

	if got := err.Error(); got != "classifier.classify (session_id=s-1): boom" {
		t.Fatalf("unexpected message: %q", got)
	}
	if !errors.Is(err, base) {
		t.Fatal("expected errors.Is to reach the wrapped error")
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if opErr.Operation != "classifier.classify" {
		t.Fatalf("unexpected operation: %s", opErr.Operation)
	}
}

func TestOperationErrorWithoutSession(t *testing.T) {
	err := NewOperationError("config.load", "", errors.New("bad duration"))
	if got := err.Error(); got != "config.load: bad duration" {
		t.Fatalf("unexpected message: %q", got)
	}
}
