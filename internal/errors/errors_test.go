package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindIO, "I/O error"},
		{KindFormat, "Format error"},
		{KindToolUnavailable, "Tool unavailable"},
		{KindRecognition, "Recognition unavailable"},
		{KindNoBundlesFound, "No bundles found"},
		{KindCancelled, "Operation cancelled"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestIsKind(t *testing.T) {
	err := NewFormatError("bad buffer")
	if !IsKind(err, KindFormat) {
		t.Error("IsKind(KindFormat) = false, want true")
	}
	if IsKind(err, KindIO) {
		t.Error("IsKind(KindIO) = true, want false")
	}
	if IsKind(errors.New("plain"), KindFormat) {
		t.Error("IsKind on plain error = true, want false")
	}
}

func TestIsKindWrapped(t *testing.T) {
	inner := NewToolUnavailableError("ffmpeg", nil)
	wrapped := NewOperationFailedError("convert loop video", inner)

	// errors.As walks the chain, so the outer kind wins.
	if !IsKind(wrapped, KindOperationFailed) {
		t.Error("wrapped error should report outer kind")
	}
	if !IsToolUnavailable(errors.Unwrap(wrapped)) {
		t.Error("unwrapped error should report tool unavailable")
	}
}

func TestCommandError(t *testing.T) {
	err := NewCommandFailedError("ffmpeg", 1, "pixel format not supported")
	if !IsKind(err, KindCommand) {
		t.Fatal("expected KindCommand")
	}

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatal("expected CommandError in chain")
	}
	if cmdErr.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", cmdErr.ExitCode)
	}
	if !strings.Contains(err.Error(), "pixel format") {
		t.Errorf("error message missing stderr excerpt: %s", err.Error())
	}
}

func TestSizeMismatchError(t *testing.T) {
	err := NewSizeMismatchError(1024, 262144)
	if !IsKind(err, KindFormat) {
		t.Error("size mismatch should be a format error")
	}
	if !strings.Contains(err.Error(), "1024") || !strings.Contains(err.Error(), "262144") {
		t.Errorf("error should mention both sizes: %s", err.Error())
	}
}

func TestCoreErrorIs(t *testing.T) {
	a := NewIOError("read failed", nil)
	b := NewIOError("other", nil)
	if !errors.Is(a, b) {
		t.Error("errors of the same kind should match via errors.Is")
	}
	c := NewFormatError("bad")
	if errors.Is(a, c) {
		t.Error("errors of different kinds should not match")
	}
}
