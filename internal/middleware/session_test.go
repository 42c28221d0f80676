package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atinyakov/rccdash/internal/models"
	"github.com/atinyakov/rccdash/internal/session"
)

// dummyHandler records whether it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

type fakeSource struct {
	current *session.Session
	touches int
}

func (f *fakeSource) Current() (session.Session, bool) {
	if f.current == nil {
		return session.Session{}, false
	}
	return *f.current, true
}

func (f *fakeSource) Touch() { f.touches++ }

func activeSource() *fakeSource {
	return &fakeSource{current: &session.Session{ID: "abc", Identity: session.Identity{Role: models.RoleAdmin}}}
}

func TestWithSession_MatchingHeader(t *testing.T) {
	src := activeSource()
	dummy := &dummyHandler{}
	h := WithSession(src)(dummy)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set(SessionHeader, "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !dummy.called {
		t.Fatal("expected next handler to be called")
	}
	if src.touches != 1 {
		t.Errorf("touches = %d; want 1", src.touches)
	}
	s, ok := GetSessionFromContext(dummy.ctx)
	if !ok || s.Role != models.RoleAdmin {
		t.Errorf("session in context = %+v, %v", s, ok)
	}
}

func TestWithSession_StaleOrMissingHeader(t *testing.T) {
	for _, id := range []string{"", "other"} {
		src := activeSource()
		dummy := &dummyHandler{}
		h := WithSession(src)(dummy)

		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		if id != "" {
			req.Header.Set(SessionHeader, id)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)

		if !dummy.called {
			t.Errorf("%q: expected pass-through", id)
		}
		if src.touches != 0 {
			t.Errorf("%q: touch must not be recorded", id)
		}
		if _, ok := GetSessionFromContext(dummy.ctx); ok {
			t.Errorf("%q: no session expected in context", id)
		}
	}
}

func TestWithSession_NoActiveSession(t *testing.T) {
	src := &fakeSource{}
	dummy := &dummyHandler{}
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set(SessionHeader, "abc")
	WithSession(src)(dummy).ServeHTTP(httptest.NewRecorder(), req)

	if _, ok := GetSessionFromContext(dummy.ctx); ok {
		t.Error("expired session must not reach the context")
	}
}

func TestRequireSession(t *testing.T) {
	dummy := &dummyHandler{}
	rec := httptest.NewRecorder()
	RequireSession(dummy).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if dummy.called {
		t.Error("did not expect next handler to be called")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 Unauthorized, got %d", rec.Code)
	}

	src := activeSource()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set(SessionHeader, "abc")
	rec = httptest.NewRecorder()
	WithSession(src)(RequireSession(dummy)).ServeHTTP(rec, req)
	if !dummy.called || rec.Code != http.StatusOK {
		t.Errorf("expected pass with session, got called=%v code=%d", dummy.called, rec.Code)
	}
}
