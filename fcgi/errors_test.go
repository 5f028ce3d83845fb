package fcgi

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewProtocolErrorZeroCodePanics(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Error("zero code must panic")
		}
	}()
	NewProtocolError(0, nil)
}

func TestProtocolErrorText(t *testing.T) {
	t.Parallel()
	err := NewProtocolError(ErrCodeUnsupportedVersion, fmt.Errorf("version 9"))
	if !strings.Contains(err.Error(), "unsupported version") {
		t.Errorf("message: got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "version 9") {
		t.Errorf("message should include the cause: got %q", err.Error())
	}

	bare := NewProtocolError(ErrCodeCallSeq, nil)
	if !strings.Contains(bare.Error(), "call out of sequence") {
		t.Errorf("message: got %q", bare.Error())
	}
}

func TestProtocolErrorUnwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")
	err := NewProtocolError(ErrCodeProtocol, cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	var perr *ProtocolError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &perr) {
		t.Error("errors.As should find the ProtocolError through wrapping")
	}
}
