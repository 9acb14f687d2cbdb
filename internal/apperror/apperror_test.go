package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestCategoryOf(t *testing.T) {
	if got := CategoryOf(NotFound("org %s", "abc")); got != CategoryNotFound {
		t.Fatalf("expected not_found, got %q", got)
	}
	if got := CategoryOf(errors.New("plain")); got != "" {
		t.Fatalf("expected empty category for plain error, got %q", got)
	}
}

func TestCategorySurvivesWrapping(t *testing.T) {
	inner := Upstream(errors.New("connection refused"), "query auth events")
	wrapped := fmt.Errorf("billing preview: %w", inner)
	if !Is(wrapped, CategoryUpstreamFailure) {
		t.Fatalf("expected upstream_failure through wrap, got %q", CategoryOf(wrapped))
	}
}

func TestUpstreamUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := Upstream(cause, "fetch rows")
	if !errors.Is(err, cause) {
		t.Fatal("expected Unwrap to expose the cause")
	}
	if msg := err.Error(); msg != "fetch rows: timeout" {
		t.Fatalf("unexpected message %q", msg)
	}
}
