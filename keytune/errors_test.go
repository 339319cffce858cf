package keytune

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := NewError(KindDecode, "bad mp3", io.ErrUnexpectedEOF)
	wrapped := fmt.Errorf("upload: %w", err)

	if !errors.Is(wrapped, ErrDecode) {
		t.Fatal("errors.Is(ErrDecode) = false")
	}
	if errors.Is(wrapped, ErrInvalidAudio) {
		t.Fatal("decode error matched InvalidAudio")
	}
	if !errors.Is(wrapped, io.ErrUnexpectedEOF) {
		t.Fatal("cause not reachable through Unwrap")
	}
	if got := KindOf(wrapped); got != KindDecode {
		t.Fatalf("KindOf() = %v, want DecodeError", got)
	}
	if got := KindOf(io.EOF); got != KindUnknown {
		t.Fatalf("KindOf(io.EOF) = %v", got)
	}
}

func TestErrorMessage(t *testing.T) {
	if got := ErrNotAnalyzed.Error(); got != "keytune: no analysis available" {
		t.Fatalf("Error() = %q", got)
	}
	err := NewError(KindUnknownKey, `unknown key "H"`, errors.New("boom"))
	if got := err.Error(); got != `keytune: unknown key "H": boom` {
		t.Fatalf("Error() = %q", got)
	}
}
