package fcgi

import (
	"log/slog"
	"sync"
	"time"
)

// Request is one application request multiplexed on a connection. The
// demultiplexer holds a non-owning reference to it and writes only the
// error field; identity fields are filled in when a begin-request
// record is observed.
type Request struct {
	ID        uint16
	Role      uint16
	KeepConn  bool
	StartedAt time.Time

	errno int
}

// Begin fills in the identity fields from a begin-request record body.
func (r *Request) Begin(id uint16, role uint16, keepConn bool) {
	r.ID = id
	r.Role = role
	r.KeepConn = keepConn
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
}

// SetErrno records the fatal protocol error code that aborted this
// request. Zero means no error has occurred.
func (r *Request) SetErrno(code int) {
	r.errno = code
}

// Errno returns the recorded protocol error code, or zero.
func (r *Request) Errno() int {
	return r.errno
}

// Tracker tracks the requests multiplexed on one connection, keyed by
// request id. The header decoder registers requests as begin-request
// records arrive and retires them when they complete.
type Tracker struct {
	log  *slog.Logger
	mu   sync.RWMutex
	reqs map[uint16]*Request
}

// NewTracker creates a request tracker. If log is nil, slog.Default()
// is used.
func NewTracker(log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		log:  log.With("component", "request-tracker"),
		reqs: make(map[uint16]*Request),
	}
}

// Begin registers a new request. Returns the request and true if
// registered, or nil and false if the id is already active.
func (t *Tracker) Begin(id uint16, role uint16, keepConn bool) (*Request, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.reqs[id]; ok {
		t.log.Warn("request id already active, rejecting duplicate", "id", id)
		return nil, false
	}

	req := &Request{}
	req.Begin(id, role, keepConn)
	t.reqs[id] = req
	t.log.Debug("request began", "id", id, "role", role, "keep_conn", keepConn)
	return req, true
}

// End retires a request by id.
func (t *Tracker) End(id uint16) {
	t.mu.Lock()
	_, ok := t.reqs[id]
	if ok {
		delete(t.reqs, id)
	}
	t.mu.Unlock()

	if ok {
		t.log.Debug("request ended", "id", id)
	}
}

// Get returns the request with the given id, or false if not active.
func (t *Tracker) Get(id uint16) (*Request, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	req, ok := t.reqs[id]
	return req, ok
}

// List returns all active requests.
func (t *Tracker) List() []*Request {
	t.mu.RLock()
	defer t.mu.RUnlock()

	reqs := make([]*Request, 0, len(t.reqs))
	for _, req := range t.reqs {
		reqs = append(reqs, req)
	}
	return reqs
}
