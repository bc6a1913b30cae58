package hverror

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestErrorDetailed(t *testing.T) {
	os.Unsetenv("NPTCORE_ENV")
	os.Unsetenv("NPTCORE_DEBUG")
	err := New("npt.Map", InvalidInput, "vaddr not aligned")
	msg := err.Error()
	if msg == "" {
		t.Fatal("empty error message")
	}
	for _, want := range []string{"npt.Map", "InvalidInput", "vaddr not aligned"} {
		if !strings.Contains(msg, want) {
			t.Errorf("detailed message %q missing %q", msg, want)
		}
	}
}

func TestErrorSanitizedInProduction(t *testing.T) {
	os.Setenv("NPTCORE_ENV", "production")
	defer os.Unsetenv("NPTCORE_ENV")

	err := New("npt.Map", InvalidInput, "vaddr not aligned")
	msg := err.Error()
	if strings.Contains(msg, "npt.Map") || strings.Contains(msg, "vaddr not aligned") {
		t.Errorf("sanitized message leaked detail: %q", msg)
	}
	if !strings.Contains(msg, "InvalidInput") {
		t.Errorf("sanitized message should still name the kind: %q", msg)
	}
}

func TestErrorWrapAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("allocator exhausted")
	err := Wrap("npt.Map", NoMemory, "allocating intermediate table", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestOf(t *testing.T) {
	err := New("AddrSpace.Unmap", BadState, "gap in range")
	kind, ok := Of(err)
	if !ok || kind != BadState {
		t.Errorf("Of() = (%v, %v), want (BadState, true)", kind, ok)
	}

	wrapped := fmt.Errorf("wrapping: %w", err)
	kind, ok = Of(wrapped)
	if !ok || kind != BadState {
		t.Errorf("Of(wrapped) = (%v, %v), want (BadState, true)", kind, ok)
	}

	if _, ok := Of(fmt.Errorf("plain")); ok {
		t.Error("Of(plain error) should report ok=false")
	}
}
