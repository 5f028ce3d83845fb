package fcgi

import (
	"errors"
	"testing"
)

func TestParseHeaderFields(t *testing.T) {
	t.Parallel()
	// version 1, BEGIN_REQUEST, request 1, content 8, padding 0.
	raw := []byte{1, 1, 0, 1, 0, 8, 0, 0}

	h, err := ParseHeader(raw)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.Version != Version1 {
		t.Errorf("version: got %d, want %d", h.Version, Version1)
	}
	if h.Type != TypeBeginRequest {
		t.Errorf("type: got %v, want %v", h.Type, TypeBeginRequest)
	}
	if h.RequestID != 1 {
		t.Errorf("request id: got %d, want 1", h.RequestID)
	}
	if h.ContentLength != 8 {
		t.Errorf("content length: got %d, want 8", h.ContentLength)
	}
	if h.PaddingLength != 0 {
		t.Errorf("padding length: got %d, want 0", h.PaddingLength)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	t.Parallel()
	want := Header{
		Version:       Version1,
		Type:          TypeStderr,
		RequestID:     0xBEEF,
		ContentLength: 0x1234,
		PaddingLength: 0xAB,
	}

	raw := AppendHeader(nil, want)
	if len(raw) != HeaderLen {
		t.Fatalf("encoded length: got %d, want %d", len(raw), HeaderLen)
	}

	got, err := ParseHeader(raw)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if got != want {
		t.Errorf("round trip: got %+v, want %+v", got, want)
	}
}

func TestParseHeaderBadVersion(t *testing.T) {
	t.Parallel()
	raw := []byte{9, 5, 0, 1, 0, 0, 0, 0}

	_, err := ParseHeader(raw)
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("got %v, want *ProtocolError", err)
	}
	if perr.Code != ErrCodeUnsupportedVersion {
		t.Errorf("code: got %d, want %d", perr.Code, ErrCodeUnsupportedVersion)
	}
}

func TestParseHeaderShortBuffer(t *testing.T) {
	t.Parallel()
	_, err := ParseHeader([]byte{1, 5, 0})
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("got %v, want *ProtocolError", err)
	}
	if perr.Code != ErrCodeProtocol {
		t.Errorf("code: got %d, want %d", perr.Code, ErrCodeProtocol)
	}
}

func FuzzParseHeader(f *testing.F) {
	f.Add([]byte{1, 1, 0, 1, 0, 8, 0, 0})
	f.Add([]byte{1, 11, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})

	f.Fuzz(func(t *testing.T, data []byte) {
		h, err := ParseHeader(data) // must not panic
		if err != nil {
			return
		}
		if h.ContentLength < 0 || h.ContentLength > MaxContentLen {
			t.Errorf("content length out of range: %d", h.ContentLength)
		}
		if h.PaddingLength < 0 || h.PaddingLength > MaxPaddingLen {
			t.Errorf("padding length out of range: %d", h.PaddingLength)
		}
	})
}
