package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atinyakov/rccdash/internal/models"
	"github.com/atinyakov/rccdash/internal/service"
	"github.com/atinyakov/rccdash/internal/session"
)

// fakeAuthService implements AuthService for testing.
type fakeAuthService struct {
	loginErr   error
	signupErr  error
	forgotErr  error
	changeErr  error
	gotLogin   service.LoginRequest
	gotChange  service.ChangePasswordRequest
	loggedOut  bool
	forgotRole string
}

func (f *fakeAuthService) Login(ctx context.Context, req service.LoginRequest) (session.Session, error) {
	f.gotLogin = req
	if f.loginErr != nil {
		return session.Session{}, f.loginErr
	}
	return session.Session{ID: "sess-1", Identity: session.Identity{Role: models.Role(req.Role)}}, nil
}

func (f *fakeAuthService) Signup(ctx context.Context, req service.SignupRequest) (service.SignupResult, error) {
	if f.signupErr != nil {
		return service.SignupResult{}, f.signupErr
	}
	return service.SignupResult{Role: models.Role(req.Role), ID: req.ID, Name: "Liam Chen", Message: "ok"}, nil
}

func (f *fakeAuthService) ForgotPassword(ctx context.Context, role, id string) (string, error) {
	f.forgotRole = role
	if f.forgotErr != nil {
		return "", f.forgotErr
	}
	return models.DefaultPassword(id), nil
}

func (f *fakeAuthService) ChangePassword(ctx context.Context, req service.ChangePasswordRequest) error {
	f.gotChange = req
	return f.changeErr
}

func (f *fakeAuthService) Logout() { f.loggedOut = true }

type staticBanner string

func (b staticBanner) Message() string { return string(b) }

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		service        *fakeAuthService
		expectedCode   int
		expectedSubstr string
	}{
		{
			name:           "invalid JSON",
			body:           `not a json`,
			service:        &fakeAuthService{},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid request",
		},
		{
			name:           "validation",
			body:           `{"role":""}`,
			service:        &fakeAuthService{loginErr: &service.Error{Kind: service.ErrValidation, Message: "Please select a role."}},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "Please select a role.",
		},
		{
			name:           "unknown identity",
			body:           `{"role":"doctor","id":"D999","password":"x"}`,
			service:        &fakeAuthService{loginErr: &service.Error{Kind: service.ErrUnknownIdentity, Message: "Doctor ID not found. Try D001, D002, etc."}},
			expectedCode:   http.StatusNotFound,
			expectedSubstr: "Doctor ID not found",
		},
		{
			name:           "wrong password",
			body:           `{"role":"doctor","id":"D001","password":"x"}`,
			service:        &fakeAuthService{loginErr: &service.Error{Kind: service.ErrInvalidCredentials, Message: "Incorrect password for this doctor."}},
			expectedCode:   http.StatusUnauthorized,
			expectedSubstr: "Incorrect password",
		},
		{
			name:           "locked",
			body:           `{"role":"doctor","id":"D001","password":"x"}`,
			service:        &fakeAuthService{loginErr: &service.Error{Kind: service.ErrAccountLocked, Message: "Too many failed attempts."}},
			expectedCode:   http.StatusLocked,
			expectedSubstr: "Too many failed attempts.",
		},
		{
			name:           "data load",
			body:           `{"role":"admin","email":"admin@rcc.com","password":"x"}`,
			service:        &fakeAuthService{loginErr: &service.Error{Kind: service.ErrDataLoad, Message: service.DataLoadMessage}},
			expectedCode:   http.StatusServiceUnavailable,
			expectedSubstr: "Error loading data",
		},
		{
			name:           "unexpected error",
			body:           `{"role":"admin","email":"admin@rcc.com","password":"x"}`,
			service:        &fakeAuthService{loginErr: errors.New("disk on fire")},
			expectedCode:   http.StatusInternalServerError,
			expectedSubstr: "internal error",
		},
		{
			name:           "success",
			body:           `{"role":"doctor","id":"D001","password":"D001@123"}`,
			service:        &fakeAuthService{},
			expectedCode:   http.StatusOK,
			expectedSubstr: `"id":"sess-1"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewBufferString(tt.body))
			h := &AuthHandler{AuthService: tt.service}
			h.Login(rec, req)
			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, res.StatusCode)
			}

			buf := new(bytes.Buffer)
			if _, err := buf.ReadFrom(res.Body); err != nil {
				t.Fatalf("failed to read body: %v", err)
			}
			if !bytes.Contains(buf.Bytes(), []byte(tt.expectedSubstr)) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedSubstr, buf.String())
			}
		})
	}
}

func TestAuthHandler_Session(t *testing.T) {
	h := &AuthHandler{AuthService: &fakeAuthService{}, Banner: staticBanner(session.ExpiredMessage)}
	rec := httptest.NewRecorder()
	h.Session(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp SessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if resp.Active {
		t.Error("expected inactive session")
	}
	if resp.Message != session.ExpiredMessage {
		t.Errorf("message = %q; want %q", resp.Message, session.ExpiredMessage)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	fake := &fakeAuthService{}
	h := &AuthHandler{AuthService: fake}
	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/logout", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if !fake.loggedOut {
		t.Error("expected Logout to be called")
	}
}

func TestAuthHandler_ForgotPassword(t *testing.T) {
	fake := &fakeAuthService{}
	h := &AuthHandler{AuthService: fake}
	rec := httptest.NewRecorder()
	h.ForgotPassword(rec, httptest.NewRequest(http.MethodPost, "/api/password/forgot", bytes.NewBufferString(`{"role":"patient","id":"P001"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if resp["password"] != "P001@123" {
		t.Errorf("password = %q", resp["password"])
	}
	if resp["message"] != "Password reset to default (P001@123). Please log in again." {
		t.Errorf("message = %q", resp["message"])
	}
	if fake.forgotRole != "patient" {
		t.Errorf("role = %q", fake.forgotRole)
	}
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	fake := &fakeAuthService{changeErr: &service.Error{Kind: service.ErrInvalidCredentials, Message: "Current password is incorrect."}}
	h := &AuthHandler{AuthService: fake}
	body := `{"role":"doctor","id":"D001","current":"a","new":"bbbbbb","confirm":"bbbbbb"}`
	rec := httptest.NewRecorder()
	h.ChangePassword(rec, httptest.NewRequest(http.MethodPost, "/api/password/change", bytes.NewBufferString(body)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if fake.gotChange.New != "bbbbbb" || fake.gotChange.Current != "a" {
		t.Errorf("request not decoded: %+v", fake.gotChange)
	}

	fake.changeErr = nil
	rec = httptest.NewRecorder()
	h.ChangePassword(rec, httptest.NewRequest(http.MethodPost, "/api/password/change", bytes.NewBufferString(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(service.PasswordUpdatedMessage)) {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestAuthHandler_Signup(t *testing.T) {
	h := &AuthHandler{AuthService: &fakeAuthService{}}
	rec := httptest.NewRecorder()
	h.Signup(rec, httptest.NewRequest(http.MethodPost, "/api/signup", bytes.NewBufferString(`{"role":"patient","id":"P002","password":"secret1","confirm":"secret1"}`)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var res service.SignupResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if res.Name != "Liam Chen" {
		t.Errorf("name = %q", res.Name)
	}
}
