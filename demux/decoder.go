package demux

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/zsiec/fcgimux/fcgi"
)

// Decoder is the default HeaderDecoder. It routes records by request
// id and type: content records for the reader's channel are delivered,
// records addressed to other requests are drained, begin-request
// bodies populate the owning request (and the Tracker, if one is
// attached), and management records are consumed on the spot.
type Decoder struct {
	tracker *fcgi.Tracker
	log     *slog.Logger
}

// NewDecoder creates a Decoder. tracker may be nil when per-connection
// request registration is not wanted; if log is nil, slog.Default() is
// used.
func NewDecoder(tracker *fcgi.Tracker, log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	return &Decoder{
		tracker: tracker,
		log:     log.With("component", "fcgi-decoder"),
	}
}

// ProcessHeader implements HeaderDecoder. The reader's content and
// padding lengths are set from the header before any branch that reads
// content back through the reader.
func (d *Decoder) ProcessHeader(hdr []byte, r *Reader) (fcgi.HeaderClass, error) {
	h, err := fcgi.ParseHeader(hdr)
	if err != nil {
		return fcgi.ClassInvalid, err
	}

	r.SetContentLength(h.ContentLength)
	r.SetPaddingLength(h.PaddingLength)

	if h.RequestID == fcgi.NullRequestID {
		// Management record. Drain exactly its declared content here;
		// answering GET_VALUES is the output side's concern, and
		// interpreting the name-value pairs is out of scope for the
		// demultiplexer.
		if h.ContentLength > 0 {
			if _, err := io.CopyN(io.Discard, r, int64(h.ContentLength)); err != nil {
				return fcgi.ClassInvalid, err
			}
		}
		d.log.Debug("management record consumed", "type", h.Type, "len", h.ContentLength)
		return fcgi.ClassManagement, nil
	}

	if h.Type == fcgi.TypeBeginRequest {
		role, flags, err := readBeginBody(r, h.ContentLength)
		if err != nil {
			return fcgi.ClassInvalid, err
		}
		keep := flags&fcgi.FlagKeepConn != 0
		// Bind the owning request only once. Later begin records on
		// the connection open other requests and must not steal this
		// reader's identity.
		if req := r.Request(); req != nil && req.ID == fcgi.NullRequestID {
			req.Begin(h.RequestID, role, keep)
		}
		if d.tracker != nil {
			d.tracker.Begin(h.RequestID, role, keep)
		}
		d.log.Debug("begin request", "id", h.RequestID, "role", role, "keep_conn", keep)
		return fcgi.ClassBeginRequest, nil
	}

	if h.Type == fcgi.TypeEndRequest {
		// The request is finished; retire it from the tracker. The
		// record body itself is the output side's concern, so the
		// reader just drains it.
		if d.tracker != nil {
			d.tracker.End(h.RequestID)
		}
		d.log.Debug("end request", "id", h.RequestID)
		return fcgi.ClassSkip, nil
	}

	if req := r.Request(); req != nil && h.RequestID != req.ID {
		// Interleaved record for another request on this connection.
		return fcgi.ClassSkip, nil
	}

	if h.Type == r.Type() {
		return fcgi.ClassStream, nil
	}

	// A type this reader has no use for (aborts, unknown types):
	// drain it and keep the stream synchronized.
	return fcgi.ClassSkip, nil
}

// readBeginBody reads the fixed begin-request body through the reader
// while the record boundary guard is in effect.
func readBeginBody(r *Reader, contentLen int) (role uint16, flags byte, err error) {
	if contentLen != fcgi.BeginBodyLen {
		return 0, 0, fcgi.NewProtocolError(fcgi.ErrCodeProtocol,
			fmt.Errorf("begin-request body length %d, expected %d", contentLen, fcgi.BeginBodyLen))
	}
	var body [fcgi.BeginBodyLen]byte
	if _, err := io.ReadFull(r, body[:]); err != nil {
		return 0, 0, err
	}
	return uint16(body[0])<<8 | uint16(body[1]), body[2], nil
}
