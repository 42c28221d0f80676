package service

import (
	"errors"
	"testing"
	"time"

	"github.com/atinyakov/rccdash/internal/catalog"
	"github.com/atinyakov/rccdash/internal/models"
	"github.com/atinyakov/rccdash/internal/repository"
	"github.com/atinyakov/rccdash/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_DoctorWithDefaultPassword(t *testing.T) {
	h := newHarness(t)

	s, err := h.auth.Login(h.ctx, LoginRequest{Role: "doctor", ID: "d001", Password: "D001@123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleDoctor, s.Role)
	require.NotNil(t, s.Doctor)
	assert.Equal(t, "Dr. Asha Rao", s.Doctor.DoctorName)

	ts, ok := h.last.Get("doctor:D001")
	require.True(t, ok)
	assert.Equal(t, repository.FormatISO(testStart), ts)

	cur, ok := h.guard.Current()
	require.True(t, ok)
	assert.Equal(t, s.ID, cur.ID)
	require.Len(t, h.notifier.started, 1)
}

func TestLogin_Admin(t *testing.T) {
	h := newHarness(t)

	_, err := h.auth.Login(h.ctx, LoginRequest{Role: "admin", Email: "admin@rcc.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "Invalid admin credentials.", Message(err))

	s, err := h.auth.Login(h.ctx, LoginRequest{Role: "Admin", Email: " ADMIN@rcc.com ", Password: AdminPassword})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, s.Role)
	assert.Empty(t, s.EntityID())

	_, ok := h.last.Get("admin:ADMIN@RCC.COM")
	assert.True(t, ok)
	_, ok = h.attempts.Record(models.RoleAdmin, AdminEmail)
	assert.False(t, ok, "success clears the failure record")
}

func TestLogin_AdminLockout(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < repository.MaxFailedAttempts; i++ {
		_, err := h.auth.Login(h.ctx, LoginRequest{Role: "admin", Email: "someone@rcc.com", Password: "x"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := h.auth.Login(h.ctx, LoginRequest{Role: "admin", Email: AdminEmail, Password: AdminPassword})
	assert.ErrorIs(t, err, ErrAccountLocked)
	assert.Equal(t, "Admin account temporarily locked due to repeated failures. Try again in 1 minute.", Message(err))

	h.clk.Advance(repository.LockoutDuration)
	_, err = h.auth.Login(h.ctx, LoginRequest{Role: "admin", Email: AdminEmail, Password: AdminPassword})
	assert.NoError(t, err)
}

func TestLogin_LockoutPrecedesPasswordCheck(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < repository.MaxFailedAttempts; i++ {
		_, err := h.auth.Login(h.ctx, LoginRequest{Role: "doctor", ID: "D001", Password: "nope"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := h.auth.Login(h.ctx, LoginRequest{Role: "doctor", ID: "D001", Password: "D001@123"})
	require.ErrorIs(t, err, ErrAccountLocked)
	assert.Equal(t, "Too many failed attempts. Account temporarily locked for 1 minute.", Message(err))

	rec, ok := h.attempts.Record(models.RoleDoctor, "D001")
	require.True(t, ok)
	assert.Equal(t, repository.MaxFailedAttempts, rec.Count, "locked attempts are not counted")
	_, active := h.guard.Current()
	assert.False(t, active)

	// Another identity is unaffected.
	_, err = h.auth.Login(h.ctx, LoginRequest{Role: "doctor", ID: "D002", Password: "D002@123"})
	assert.NoError(t, err)
}

func TestLogin_UnknownIdentityCountsAsFailure(t *testing.T) {
	h := newHarness(t)

	_, err := h.auth.Login(h.ctx, LoginRequest{Role: "patient", ID: "p999", Password: "x"})
	require.ErrorIs(t, err, ErrUnknownIdentity)
	assert.Equal(t, "Patient ID not found. Try P001, P002, etc.", Message(err))

	_, err = h.auth.Login(h.ctx, LoginRequest{Role: "doctor", ID: "D999", Password: "x"})
	assert.Equal(t, "Doctor ID not found. Try D001, D002, etc.", Message(err))

	rec, ok := h.attempts.Record(models.RolePatient, "P999")
	require.True(t, ok)
	assert.Equal(t, 1, rec.Count)
}

func TestLogin_WrongPasswordMessages(t *testing.T) {
	h := newHarness(t)

	_, err := h.auth.Login(h.ctx, LoginRequest{Role: "patient", ID: "P001", Password: "guess"})
	assert.Equal(t, `Invalid password. Default is ID + "@123" (e.g., P001@123)`, Message(err))

	h.creds.Set(h.ctx, models.RolePatient, "P001", "custom1")
	_, err = h.auth.Login(h.ctx, LoginRequest{Role: "patient", ID: "P001", Password: "P001@123"})
	assert.Equal(t, "Incorrect password for this patient.", Message(err))
}

func TestLogin_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  LoginRequest
		want string
	}{
		{name: "no role", req: LoginRequest{ID: "D001", Password: "x"}, want: "Please select a role."},
		{name: "bad role", req: LoginRequest{Role: "nurse", ID: "D001", Password: "x"}, want: "Please select a role."},
		{name: "admin fields", req: LoginRequest{Role: "admin", Email: AdminEmail}, want: "Enter admin email and password."},
		{name: "no id", req: LoginRequest{Role: "doctor", ID: "  ", Password: "x"}, want: "Please enter an ID."},
		{name: "no password", req: LoginRequest{Role: "patient", ID: "P001"}, want: "Please enter your password."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.auth.Login(h.ctx, tt.req)
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tt.want, Message(err))
			_, ok := h.attempts.Record(models.RoleDoctor, "D001")
			assert.False(t, ok, "validation failures are not counted")
		})
	}
}

func TestLogin_DataLoadFailureGatesEveryRole(t *testing.T) {
	h := newHarnessWith(t, catalog.Failed(errors.New("missing doctors.csv")))

	for _, req := range []LoginRequest{
		{Role: "admin", Email: AdminEmail, Password: AdminPassword},
		{Role: "doctor", ID: "D001", Password: "D001@123"},
	} {
		_, err := h.auth.Login(h.ctx, req)
		require.ErrorIs(t, err, ErrDataLoad)
		assert.Equal(t, DataLoadMessage, Message(err))
	}
	_, ok := h.guard.Current()
	assert.False(t, ok)
}

func TestSession_ExpiresAfterIdleTimeout(t *testing.T) {
	h := newHarness(t)
	_, err := h.auth.Login(h.ctx, LoginRequest{Role: "patient", ID: "P003", Password: "P003@123"})
	require.NoError(t, err)

	h.clk.Advance(10 * time.Minute)
	h.guard.Touch()
	h.clk.Advance(14 * time.Minute)
	_, ok := h.guard.Current()
	assert.True(t, ok, "touch pushed the deadline out")

	h.clk.Advance(time.Minute)
	_, ok = h.guard.Current()
	assert.False(t, ok)
	assert.Equal(t, []string{session.ExpiredMessage}, h.notifier.ended)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	_, err := h.auth.Login(h.ctx, LoginRequest{Role: "doctor", ID: "D002", Password: "D002@123"})
	require.NoError(t, err)

	h.auth.Logout()
	_, ok := h.guard.Current()
	assert.False(t, ok)
	assert.Equal(t, []string{""}, h.notifier.ended)
	assert.Zero(t, h.clk.Pending())
}

func TestSignup_ThenLogin(t *testing.T) {
	h := newHarness(t)

	res, err := h.auth.Signup(h.ctx, SignupRequest{Role: "patient", ID: "p002", Password: "secret1", Confirm: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "P002", res.ID)
	assert.Equal(t, "Liam Chen", res.Name)
	assert.Equal(t, "Account created for patient P002. You can now log in.", res.Message)
	assert.True(t, h.creds.Has(models.RolePatient, "P002"))

	_, err = h.auth.Login(h.ctx, LoginRequest{Role: "patient", ID: "P002", Password: "P002@123"})
	assert.Equal(t, "Incorrect password for this patient.", Message(err))

	_, err = h.auth.Login(h.ctx, LoginRequest{Role: "patient", ID: "P002", Password: "secret1"})
	assert.NoError(t, err)
}

func TestSignup_KeepsSuppliedName(t *testing.T) {
	h := newHarness(t)
	res, err := h.auth.Signup(h.ctx, SignupRequest{Role: "doctor", ID: "D001", Name: "Asha", Password: "longpass", Confirm: "longpass"})
	require.NoError(t, err)
	assert.Equal(t, "Asha", res.Name)
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  SignupRequest
		kind error
		want string
	}{
		{"admin role", SignupRequest{Role: "admin", ID: "X", Password: "secret1", Confirm: "secret1"}, ErrValidation, "Select a role (doctor or patient)."},
		{"no id", SignupRequest{Role: "doctor", Password: "secret1", Confirm: "secret1"}, ErrValidation, "Enter your ID."},
		{"short", SignupRequest{Role: "doctor", ID: "D001", Password: "12345", Confirm: "12345"}, ErrValidation, "Password must be at least 6 characters."},
		{"mismatch", SignupRequest{Role: "doctor", ID: "D001", Password: "secret1", Confirm: "secret2"}, ErrValidation, "Passwords do not match."},
		{"unknown doctor", SignupRequest{Role: "doctor", ID: "D404", Password: "secret1", Confirm: "secret1"}, ErrUnknownIdentity, "Doctor ID not found in dataset. Use an existing doctor ID."},
		{"unknown patient", SignupRequest{Role: "patient", ID: "P404", Password: "secret1", Confirm: "secret1"}, ErrUnknownIdentity, "Patient ID not found in dataset. Use an existing patient ID."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.auth.Signup(h.ctx, tt.req)
			require.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.want, Message(err))
		})
	}
}

func TestForgotPassword_ResetsToDefault(t *testing.T) {
	h := newHarness(t)
	h.creds.Set(h.ctx, models.RoleDoctor, "D001", "mine123")

	pw, err := h.auth.ForgotPassword(h.ctx, "doctor", "d001")
	require.NoError(t, err)
	assert.Equal(t, "D001@123", pw)
	assert.Equal(t, "D001@123", h.creds.Get(models.RoleDoctor, "D001"))
}

func TestForgotPassword_LeavesLockoutAlone(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < repository.MaxFailedAttempts; i++ {
		h.attempts.RecordFailure(h.ctx, models.RolePatient, "P001")
	}
	_, err := h.auth.ForgotPassword(h.ctx, "patient", "P001")
	require.NoError(t, err)
	assert.True(t, h.attempts.IsLockedOut(h.ctx, models.RolePatient, "P001"))
}

func TestForgotPassword_Validation(t *testing.T) {
	h := newHarness(t)

	_, err := h.auth.ForgotPassword(h.ctx, "", "D001")
	assert.Equal(t, "Select Doctor or Patient and enter ID before resetting password.", Message(err))
	_, err = h.auth.ForgotPassword(h.ctx, "doctor", "")
	assert.Equal(t, "Enter your ID first.", Message(err))
	_, err = h.auth.ForgotPassword(h.ctx, "patient", "P404")
	assert.ErrorIs(t, err, ErrUnknownIdentity)
	assert.Equal(t, "Patient ID not found in dataset.", Message(err))
}

func TestChangePassword_AfterReset(t *testing.T) {
	h := newHarness(t)
	_, err := h.auth.Signup(h.ctx, SignupRequest{Role: "doctor", ID: "D002", Password: "first1", Confirm: "first1"})
	require.NoError(t, err)
	_, err = h.auth.ForgotPassword(h.ctx, "doctor", "D002")
	require.NoError(t, err)

	err = h.auth.ChangePassword(h.ctx, ChangePasswordRequest{Role: "doctor", ID: "D002", Current: "first1", New: "second2", Confirm: "second2"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "Current password is incorrect.", Message(err))
	_, ok := h.attempts.Record(models.RoleDoctor, "D002")
	assert.False(t, ok, "change-password failures are not counted")

	err = h.auth.ChangePassword(h.ctx, ChangePasswordRequest{Role: "doctor", ID: "D002", Current: "D002@123", New: "second2", Confirm: "second2"})
	require.NoError(t, err)
	_, err = h.auth.Login(h.ctx, LoginRequest{Role: "doctor", ID: "D002", Password: "second2"})
	assert.NoError(t, err)
}

func TestChangePassword_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  ChangePasswordRequest
		want string
	}{
		{"admin", ChangePasswordRequest{Role: "admin", ID: "x", Current: "a", New: "bbbbbb", Confirm: "bbbbbb"}, "Role must be doctor or patient."},
		{"no id", ChangePasswordRequest{Role: "doctor", Current: "a", New: "bbbbbb", Confirm: "bbbbbb"}, "Enter your ID."},
		{"blank field", ChangePasswordRequest{Role: "doctor", ID: "D001", Current: "a", New: "bbbbbb"}, "Fill in all password fields."},
		{"short", ChangePasswordRequest{Role: "doctor", ID: "D001", Current: "a", New: "bbb", Confirm: "bbb"}, "New password must be at least 6 characters."},
		{"mismatch", ChangePasswordRequest{Role: "doctor", ID: "D001", Current: "a", New: "bbbbbb", Confirm: "cccccc"}, "New passwords do not match."},
		{"unknown", ChangePasswordRequest{Role: "doctor", ID: "D404", Current: "a", New: "bbbbbb", Confirm: "bbbbbb"}, "Doctor ID not found in dataset."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			err := h.auth.ChangePassword(h.ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.want, Message(err))
		})
	}
}

func TestPasswordResetMessage(t *testing.T) {
	assert.Equal(t, "Password reset to default (P001@123). Please log in again.", PasswordResetMessage("P001@123"))
}
