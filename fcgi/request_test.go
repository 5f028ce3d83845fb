package fcgi

import (
	"testing"
)

func TestTrackerBeginAndGet(t *testing.T) {
	t.Parallel()
	tr := NewTracker(nil)

	req, ok := tr.Begin(3, RoleResponder, true)
	if !ok {
		t.Fatal("Begin returned not-ok for new request")
	}
	if req == nil {
		t.Fatal("Begin returned nil")
	}
	if req.ID != 3 || req.Role != RoleResponder || !req.KeepConn {
		t.Errorf("request fields: got %+v", req)
	}
	if req.StartedAt.IsZero() {
		t.Error("StartedAt should not be zero")
	}

	got, ok := tr.Get(3)
	if !ok || got != req {
		t.Error("Get should return the registered request")
	}
}

func TestTrackerBeginDuplicate(t *testing.T) {
	t.Parallel()
	tr := NewTracker(nil)

	if _, ok := tr.Begin(1, RoleResponder, false); !ok {
		t.Fatal("first Begin should succeed")
	}
	req2, ok2 := tr.Begin(1, RoleFilter, false)
	if ok2 {
		t.Error("duplicate Begin should return false")
	}
	if req2 != nil {
		t.Error("duplicate Begin should return nil request")
	}
}

func TestTrackerEnd(t *testing.T) {
	t.Parallel()
	tr := NewTracker(nil)

	tr.Begin(1, RoleResponder, false)
	tr.End(1)
	if _, ok := tr.Get(1); ok {
		t.Error("request should be gone after End")
	}

	// Ending an unknown id is a no-op.
	tr.End(42)
}

func TestTrackerList(t *testing.T) {
	t.Parallel()
	tr := NewTracker(nil)

	tr.Begin(1, RoleResponder, false)
	tr.Begin(2, RoleAuthorizer, false)

	if got := len(tr.List()); got != 2 {
		t.Errorf("List: got %d requests, want 2", got)
	}
}

func TestRequestErrno(t *testing.T) {
	t.Parallel()
	req := &Request{}
	if req.Errno() != 0 {
		t.Errorf("fresh request errno: got %d, want 0", req.Errno())
	}
	req.SetErrno(ErrCodeProtocol)
	if req.Errno() != ErrCodeProtocol {
		t.Errorf("errno: got %d, want %d", req.Errno(), ErrCodeProtocol)
	}
}
