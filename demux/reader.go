package demux

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zsiec/fcgimux/fcgi"
)

// HeaderDecoder interprets one fixed-size record header on behalf of a
// Reader. Implementations must set the reader's content and padding
// lengths from the decoded header before returning, and may read
// further bytes back through the reader; the reader guards such nested
// reads so they cannot run past the current record boundary.
type HeaderDecoder interface {
	ProcessHeader(hdr []byte, r *Reader) (fcgi.HeaderClass, error)
}

// Reader demultiplexes one logical content channel out of the FastCGI
// record stream on a connection. It is driven synchronously by its
// caller and is not safe for concurrent use; transport reads happen
// inline with caller reads and block until the transport produces
// bytes.
type Reader struct {
	in  io.Reader
	buf []byte

	pos    int // next byte to deliver
	limit  int // end of the deliverable window
	filled int // end of bytes fetched from the transport

	typ      fcgi.RecordType
	content  int  // content bytes the current record still owes
	padding  int  // padding bytes the current record still owes
	skipping bool // draining the current record without delivery
	inHeader bool // a decoder is interpreting a header through us
	closed   bool

	req *fcgi.Request
	dec HeaderDecoder
	log *slog.Logger
	err *fcgi.ProtocolError // sticky after a fatal violation

	records   int64
	skipped   int64
	delivered int64
	protoErrs int64
}

// NewReader creates a reader for the given channel type over the
// transport in. Buffer capacity is min(bufLen, fcgi.MaxBufferLen), with
// a floor of one byte. req receives the error code if the reader fails;
// it may be nil for callers that do not track requests.
func NewReader(in io.Reader, bufLen int, typ fcgi.RecordType, req *fcgi.Request, opts ...func(*Reader)) *Reader {
	if bufLen > fcgi.MaxBufferLen {
		bufLen = fcgi.MaxBufferLen
	}
	if bufLen < 1 {
		bufLen = 1
	}
	r := &Reader{
		in:  in,
		buf: make([]byte, bufLen),
		typ: typ,
		req: req,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.dec == nil {
		r.dec = NewDecoder(nil, r.log)
	}
	return r
}

// ReaderOptDecoder sets the header decoder (default: NewDecoder).
func ReaderOptDecoder(d HeaderDecoder) func(*Reader) {
	return func(r *Reader) {
		r.dec = d
	}
}

// ReaderOptLogger sets the logger (default: slog.Default()).
func ReaderOptLogger(log *slog.Logger) func(*Reader) {
	return func(r *Reader) {
		r.log = log
	}
}

// ReadByte returns the next content byte of the channel. It blocks
// until a byte is available and returns io.EOF once the channel has
// ended.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos != r.limit {
		b := r.buf[r.pos]
		r.pos++
		r.delivered++
		return b, nil
	}
	if r.closed {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	if err := r.refill(); err != nil {
		return 0, err
	}
	if r.pos != r.limit {
		b := r.buf[r.pos]
		r.pos++
		r.delivered++
		return b, nil
	}
	return 0, io.EOF
}

// Read fills p with content bytes of the channel. It blocks until p is
// full or the channel ends, and returns io.EOF only once no bytes at
// all are available. A fatal protocol violation aborts the whole call:
// no partial count is returned alongside the error.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	// Fast path: the request is already satisfied by decoded bytes.
	if len(p) <= r.limit-r.pos {
		n := copy(p, r.buf[r.pos:r.pos+len(p)])
		r.pos += n
		r.delivered += int64(n)
		return n, nil
	}

	moved := 0
	for {
		if r.pos != r.limit {
			n := min(len(p)-moved, r.limit-r.pos)
			copy(p[moved:], r.buf[r.pos:r.pos+n])
			moved += n
			r.pos += n
			r.delivered += int64(n)
			if moved == len(p) {
				return moved, nil
			}
		}
		if r.closed {
			if moved > 0 {
				return moved, nil
			}
			if r.err != nil {
				return 0, r.err
			}
			return 0, io.EOF
		}
		if err := r.refill(); err != nil {
			return 0, err
		}
	}
}

// refill advances the record state machine until it has made content
// bytes deliverable, observed end-of-channel, consumed a begin-request
// record, or failed. It is the only place transport reads happen.
func (r *Reader) refill() error {
	var (
		hdr    [fcgi.HeaderLen]byte
		hdrLen int
	)
	for {
		// Buffered window exhausted: fetch more from the transport.
		// FastCGI records have declared lengths, so running dry here
		// is a truncation, not a clean end-of-stream.
		if r.pos == r.filled {
			n, err := r.in.Read(r.buf)
			if n <= 0 {
				if err == nil {
					err = io.ErrNoProgress
				}
				return r.fatal(fcgi.ErrCodeProtocol, err)
			}
			r.pos, r.filled = 0, n
		}

		// Deliver or discard the content the current record still owes.
		if r.content > 0 {
			n := min(r.content, r.filled-r.pos)
			r.content -= n
			if !r.skipping {
				r.limit = r.pos + n
				return nil
			}
			r.pos += n
			if r.content > 0 {
				continue
			}
			r.skipping = false
		}

		// Step over record padding.
		if r.padding > 0 {
			n := min(r.padding, r.filled-r.pos)
			r.padding -= n
			r.pos += n
			if r.padding > 0 {
				continue
			}
		}

		// A nested read issued during header interpretation must not
		// run into the next record: report end-of-channel instead.
		if r.inHeader {
			r.limit = r.pos
			r.closed = true
			return nil
		}

		// Accumulate a complete header, across as many transport reads
		// as it takes. A partial header is never classified.
		n := min(len(hdr)-hdrLen, r.filled-r.pos)
		copy(hdr[hdrLen:], r.buf[r.pos:r.pos+n])
		hdrLen += n
		r.pos += n
		if hdrLen < len(hdr) {
			continue
		}
		hdrLen = 0

		r.inHeader = true
		r.limit = r.pos
		class, err := r.dec.ProcessHeader(hdr[:], r)
		r.inHeader = false
		r.closed = false
		if err != nil {
			return r.fail(err)
		}
		r.records++

		switch class {
		case fcgi.ClassStream:
			if r.content == 0 {
				// Zero-length record: the channel has ended.
				r.limit = r.pos
				r.closed = true
				return nil
			}
		case fcgi.ClassSkip:
			r.skipping = r.content > 0
			r.skipped++
		case fcgi.ClassBeginRequest:
			// Surface the new request context to the caller before
			// any of its content records arrive.
			return nil
		case fcgi.ClassManagement:
			// Consumed by the decoder; move on to the next record.
		default:
			return r.fatal(fcgi.ErrCodeProtocol, fmt.Errorf("unknown header class %d", class))
		}
	}
}

func (r *Reader) fatal(code int, cause error) error {
	return r.fail(fcgi.NewProtocolError(code, cause))
}

// fail closes the reader permanently. The error is recorded on the
// owning request and returned from this and every subsequent read.
func (r *Reader) fail(err error) error {
	var perr *fcgi.ProtocolError
	if !errors.As(err, &perr) {
		perr = fcgi.NewProtocolError(fcgi.ErrCodeProtocol, err)
	}
	if r.req != nil {
		r.req.SetErrno(perr.Code)
	}
	r.err = perr
	r.closed = true
	r.inHeader = false
	r.limit = r.pos
	r.protoErrs++
	r.log.Debug("reader failed", "type", r.typ, "code", perr.Code, "error", perr)
	return perr
}

// Skip discards up to n bytes read directly from the transport,
// bypassing record parsing entirely. It issues a single transport read
// and may discard fewer bytes than requested; callers needing an exact
// skip must check the returned count.
func (r *Reader) Skip(n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	buf := make([]byte, int(n))
	m, err := r.in.Read(buf)
	if m < 0 {
		m = 0
	}
	return int64(m), err
}

// Rebind repurposes the reader for a new logical channel on the same
// connection, such as the params-to-stdin handoff. Record state is
// reset and buffered transport bytes are kept; the next read
// interprets a fresh header. A reader that has failed with a protocol
// error stays failed.
func (r *Reader) Rebind(typ fcgi.RecordType) {
	r.typ = typ
	r.inHeader = false
	r.skipping = false
	r.content = 0
	r.padding = 0
	r.limit = r.pos
	r.closed = r.err != nil
}

// Close marks the reader closed and empties the deliverable window.
// It is idempotent, never fails, and does not touch the transport.
func (r *Reader) Close() error {
	r.closed = true
	r.limit = r.pos
	return nil
}

// Available reports a best-effort count of bytes readable without
// blocking: decoded bytes on hand plus the transport's own estimate
// when the transport provides one.
func (r *Reader) Available() int {
	n := r.limit - r.pos
	if a, ok := r.in.(interface{ Available() int }); ok {
		n += a.Available()
	}
	return n
}

// Type returns the channel the reader currently serves.
func (r *Reader) Type() fcgi.RecordType {
	return r.typ
}

// Request returns the owning request, which may be nil.
func (r *Reader) Request() *fcgi.Request {
	return r.req
}

// ContentLength returns the content bytes the current record still
// owes.
func (r *Reader) ContentLength() int {
	return r.content
}

// SetContentLength is called by the header decoder with the decoded
// content length of a new record.
func (r *Reader) SetContentLength(n int) {
	r.content = n
}

// SetPaddingLength is called by the header decoder with the decoded
// padding length of a new record.
func (r *Reader) SetPaddingLength(n int) {
	r.padding = n
}
