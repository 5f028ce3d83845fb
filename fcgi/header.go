package fcgi

import (
	"encoding/binary"
	"fmt"
)

// Header is a parsed FastCGI record header.
type Header struct {
	Version       uint8
	Type          RecordType
	RequestID     uint16
	ContentLength int
	PaddingLength int
}

// ParseHeader decodes the fixed 8-byte record header. It rejects any
// version other than Version1; record types are not validated here
// because unknown types are a routing decision, not a parse failure.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) != HeaderLen {
		return Header{}, NewProtocolError(ErrCodeProtocol,
			fmt.Errorf("header length %d, expected %d", len(buf), HeaderLen))
	}
	h := Header{
		Version:       buf[0],
		Type:          RecordType(buf[1]),
		RequestID:     binary.BigEndian.Uint16(buf[2:4]),
		ContentLength: int(binary.BigEndian.Uint16(buf[4:6])),
		PaddingLength: int(buf[6]),
	}
	if h.Version != Version1 {
		return Header{}, NewProtocolError(ErrCodeUnsupportedVersion,
			fmt.Errorf("version %d", h.Version))
	}
	return h, nil
}

// AppendHeader appends the 8-byte wire encoding of h to b. The final
// reserved byte is always zero.
func AppendHeader(b []byte, h Header) []byte {
	return append(b,
		h.Version,
		byte(h.Type),
		byte(h.RequestID>>8), byte(h.RequestID),
		byte(h.ContentLength>>8), byte(h.ContentLength),
		byte(h.PaddingLength),
		0,
	)
}
