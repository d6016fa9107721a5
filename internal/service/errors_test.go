package service

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", newError(KindNotFound, "not_found"))

	if KindOf(nil) != "" {
		t.Fatalf("nil error has no kind")
	}
	if KindOf(wrapped) != KindNotFound {
		t.Fatalf("expected not_found through wrapping")
	}
	if KindOf(errors.New("boom")) != KindStoreUnavailable {
		t.Fatalf("unknown errors must count as store failures")
	}
}

func TestErrorIsMatchesKindSentinel(t *testing.T) {
	err := fmt.Errorf("publish: %w", newError(KindAlreadyResolved, "already_resolved"))

	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected errors.Is to match the kind sentinel")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("different kinds must not match")
	}
}

func TestStoreErrorKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := storeError("enqueue", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("cause must be reachable through Unwrap")
	}
	if AsError(cause).Kind != KindStoreUnavailable {
		t.Fatalf("AsError must wrap unknown errors")
	}
}
