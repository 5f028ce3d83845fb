package fcgi

import "fmt"

// ProtocolError is a fatal FastCGI protocol violation. Code is one of
// the ErrCode values and is never zero. A reader that returns a
// ProtocolError is permanently closed; callers must not retry it.
type ProtocolError struct {
	Code int
	Err  error
}

// NewProtocolError builds a ProtocolError with the given code and
// optional cause. It panics if code is zero: zero is reserved as the
// no-error value of a request's error field, so constructing a signal
// with it is a programming error.
func NewProtocolError(code int, cause error) *ProtocolError {
	if code == 0 {
		panic("fcgi: protocol error code must not be zero")
	}
	return &ProtocolError{Code: code, Err: cause}
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fcgi: %s: %v", codeText(e.Code), e.Err)
	}
	return fmt.Sprintf("fcgi: %s", codeText(e.Code))
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func codeText(code int) string {
	switch code {
	case ErrCodeUnsupportedVersion:
		return "unsupported version"
	case ErrCodeProtocol:
		return "protocol violation"
	case ErrCodeParams:
		return "invalid params"
	case ErrCodeCallSeq:
		return "call out of sequence"
	}
	return fmt.Sprintf("error %d", code)
}
