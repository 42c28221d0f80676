// Package service implements the dashboard's business logic: the credential
// gate, meeting scheduling and the read-only dashboard queries.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/atinyakov/rccdash/internal/clock"
	"github.com/atinyakov/rccdash/internal/models"
	"github.com/atinyakov/rccdash/internal/session"
	"go.uber.org/zap"
)

// Fixed administrator credentials.
const (
	AdminEmail    = "admin@rcc.com"
	AdminPassword = "Admin123!"
)

// MinPasswordLength applies to signup and change-password.
const MinPasswordLength = 6

// PasswordUpdatedMessage confirms a password change.
const PasswordUpdatedMessage = "Password updated successfully."

// PasswordResetMessage confirms a reset to the default password.
func PasswordResetMessage(password string) string {
	return fmt.Sprintf("Password reset to default (%s). Please log in again.", password)
}

// Catalog is the reference data the auth flows validate identifiers against.
type Catalog interface {
	Err() error
	Doctor(id string) (models.Doctor, bool)
	Patient(id string) (models.Patient, bool)
}

// CredentialRepository stores passwords per identity.
type CredentialRepository interface {
	// Get returns the effective password (stored or default).
	Get(role models.Role, id string) string
	// Has reports whether an explicit record exists.
	Has(role models.Role, id string) bool
	// Set replaces the record.
	Set(ctx context.Context, role models.Role, id, password string)
}

// AttemptRepository tracks failed logins.
type AttemptRepository interface {
	IsLockedOut(ctx context.Context, role models.Role, id string) bool
	RecordFailure(ctx context.Context, role models.Role, id string)
	Clear(ctx context.Context, role models.Role, id string)
}

// LastLoginRepository records successful logins.
type LastLoginRepository interface {
	Record(ctx context.Context, key string, at time.Time)
	Get(key string) (string, bool)
}

// SessionManager starts and ends the single session.
type SessionManager interface {
	Start(id session.Identity) session.Session
	End(reason string)
}

// PasswordVerifier compares a supplied password with the effective one.
type PasswordVerifier interface {
	Verify(supplied, expected string) bool
}

// AuthService implements login, signup, forgot-password and change-password.
type AuthService struct {
	mu        sync.Mutex
	catalog   Catalog
	creds     CredentialRepository
	attempts  AttemptRepository
	lastLogin LastLoginRepository
	sessions  SessionManager
	verifier  PasswordVerifier
	clock     clock.Clock
	log       *zap.Logger
}

// NewAuthService wires the credential gate.
func NewAuthService(
	catalog Catalog,
	creds CredentialRepository,
	attempts AttemptRepository,
	lastLogin LastLoginRepository,
	sessions SessionManager,
	verifier PasswordVerifier,
	clk clock.Clock,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		catalog:   catalog,
		creds:     creds,
		attempts:  attempts,
		lastLogin: lastLogin,
		sessions:  sessions,
		verifier:  verifier,
		clock:     clk,
		log:       log,
	}
}

// LoginRequest is the login form. Email is used by admin, ID by doctors
// and patients.
type LoginRequest struct {
	Role     string `json:"role"`
	Email    string `json:"email"`
	ID       string `json:"id"`
	Password string `json:"password"`
}

// Login authenticates and starts the session. The lockout check always
// precedes the password comparison.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	role, ok := models.ParseRole(req.Role)
	if !ok {
		return session.Session{}, newError(ErrValidation, "Please select a role.")
	}
	if err := s.dataReady(); err != nil {
		return session.Session{}, err
	}
	if role == models.RoleAdmin {
		return s.loginAdmin(ctx, req)
	}
	return s.loginMember(ctx, role, req)
}

func (s *AuthService) loginAdmin(ctx context.Context, req LoginRequest) (session.Session, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return session.Session{}, newError(ErrValidation, "Enter admin email and password.")
	}
	if s.attempts.IsLockedOut(ctx, models.RoleAdmin, AdminEmail) {
		s.log.Warn("login rejected: locked", zap.String("role", string(models.RoleAdmin)))
		return session.Session{}, newError(ErrAccountLocked,
			"Admin account temporarily locked due to repeated failures. Try again in 1 minute.")
	}
	if !strings.EqualFold(email, AdminEmail) || !s.verifier.Verify(req.Password, AdminPassword) {
		s.attempts.RecordFailure(ctx, models.RoleAdmin, AdminEmail)
		s.log.Warn("login rejected: invalid admin credentials")
		return session.Session{}, newError(ErrInvalidCredentials, "Invalid admin credentials.")
	}

	s.attempts.Clear(ctx, models.RoleAdmin, AdminEmail)
	s.lastLogin.Record(ctx, models.IdentityKey(models.RoleAdmin, AdminEmail), s.clock.Now())
	return s.sessions.Start(session.Identity{Role: models.RoleAdmin}), nil
}

func (s *AuthService) loginMember(ctx context.Context, role models.Role, req LoginRequest) (session.Session, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return session.Session{}, newError(ErrValidation, "Please enter an ID.")
	}
	if req.Password == "" {
		return session.Session{}, newError(ErrValidation, "Please enter your password.")
	}
	idUpper := strings.ToUpper(id)
	log := s.log.With(zap.String("role", string(role)), zap.String("id", idUpper))

	if s.attempts.IsLockedOut(ctx, role, idUpper) {
		log.Warn("login rejected: locked")
		return session.Session{}, newError(ErrAccountLocked,
			"Too many failed attempts. Account temporarily locked for 1 minute.")
	}

	identity, found := s.lookup(role, idUpper)
	if !found {
		s.attempts.RecordFailure(ctx, role, idUpper)
		log.Warn("login rejected: unknown identity")
		if role == models.RoleDoctor {
			return session.Session{}, newError(ErrUnknownIdentity, "Doctor ID not found. Try D001, D002, etc.")
		}
		return session.Session{}, newError(ErrUnknownIdentity, "Patient ID not found. Try P001, P002, etc.")
	}

	if !s.verifier.Verify(req.Password, s.creds.Get(role, idUpper)) {
		s.attempts.RecordFailure(ctx, role, idUpper)
		log.Warn("login rejected: wrong password")
		if s.creds.Has(role, idUpper) {
			return session.Session{}, newError(ErrInvalidCredentials, fmt.Sprintf("Incorrect password for this %s.", role))
		}
		return session.Session{}, newError(ErrInvalidCredentials,
			fmt.Sprintf(`Invalid password. Default is ID + "@123" (e.g., %s)`, models.DefaultPassword(idUpper)))
	}

	s.attempts.Clear(ctx, role, idUpper)
	s.lastLogin.Record(ctx, models.IdentityKey(role, idUpper), s.clock.Now())
	return s.sessions.Start(identity), nil
}

// Logout ends the session without a message.
func (s *AuthService) Logout() {
	s.sessions.End("")
}

// SignupRequest is the signup form.
type SignupRequest struct {
	Role     string `json:"role"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

// SignupResult describes the identity credentials were attached to.
type SignupResult struct {
	Role models.Role `json:"role"`
	ID   string      `json:"id"`
	// Name is the supplied name, or the catalog name when none was given.
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Signup attaches a password to a doctor or patient that already exists in
// the catalog. Any previous credential record is overwritten.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (SignupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	role, ok := models.ParseRole(req.Role)
	if !ok || role == models.RoleAdmin {
		return SignupResult{}, newError(ErrValidation, "Select a role (doctor or patient).")
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return SignupResult{}, newError(ErrValidation, "Enter your ID.")
	}
	if utf8.RuneCountInString(req.Password) < MinPasswordLength {
		return SignupResult{}, newError(ErrValidation, "Password must be at least 6 characters.")
	}
	if req.Password != req.Confirm {
		return SignupResult{}, newError(ErrValidation, "Passwords do not match.")
	}
	if err := s.dataReady(); err != nil {
		return SignupResult{}, err
	}

	idUpper := strings.ToUpper(id)
	name := strings.TrimSpace(req.Name)
	identity, found := s.lookup(role, idUpper)
	if !found {
		return SignupResult{}, newError(ErrUnknownIdentity,
			fmt.Sprintf("%s ID not found in dataset. Use an existing %s ID.", roleTitle(role), role))
	}
	if name == "" {
		name = displayName(identity)
	}

	s.creds.Set(ctx, role, idUpper, req.Password)
	s.log.Info("credentials created", zap.String("role", string(role)), zap.String("id", idUpper))
	return SignupResult{
		Role:    role,
		ID:      idUpper,
		Name:    name,
		Message: fmt.Sprintf("Account created for %s %s. You can now log in.", role, idUpper),
	}, nil
}

// ForgotPassword resets the identity's credential to the default password
// and returns it. Lockout state is left untouched.
func (s *AuthService) ForgotPassword(ctx context.Context, roleName, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	role, ok := models.ParseRole(roleName)
	if !ok || role == models.RoleAdmin {
		return "", newError(ErrValidation, "Select Doctor or Patient and enter ID before resetting password.")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", newError(ErrValidation, "Enter your ID first.")
	}
	if err := s.dataReady(); err != nil {
		return "", err
	}
	idUpper := strings.ToUpper(id)
	if _, found := s.lookup(role, idUpper); !found {
		return "", newError(ErrUnknownIdentity, fmt.Sprintf("%s ID not found in dataset.", roleTitle(role)))
	}

	def := models.DefaultPassword(idUpper)
	s.creds.Set(ctx, role, idUpper, def)
	s.log.Info("password reset to default", zap.String("role", string(role)), zap.String("id", idUpper))
	return def, nil
}

// ChangePasswordRequest is the change-password form.
type ChangePasswordRequest struct {
	Role    string `json:"role"`
	ID      string `json:"id"`
	Current string `json:"current"`
	New     string `json:"new"`
	Confirm string `json:"confirm"`
}

// ChangePassword replaces the password after checking the current one
// against the effective password. No session is required.
func (s *AuthService) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	role, ok := models.ParseRole(req.Role)
	if !ok || role == models.RoleAdmin {
		return newError(ErrValidation, "Role must be doctor or patient.")
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return newError(ErrValidation, "Enter your ID.")
	}
	if req.Current == "" || req.New == "" || req.Confirm == "" {
		return newError(ErrValidation, "Fill in all password fields.")
	}
	if utf8.RuneCountInString(req.New) < MinPasswordLength {
		return newError(ErrValidation, "New password must be at least 6 characters.")
	}
	if req.New != req.Confirm {
		return newError(ErrValidation, "New passwords do not match.")
	}
	if err := s.dataReady(); err != nil {
		return err
	}
	idUpper := strings.ToUpper(id)
	if _, found := s.lookup(role, idUpper); !found {
		return newError(ErrUnknownIdentity, fmt.Sprintf("%s ID not found in dataset.", roleTitle(role)))
	}
	if !s.verifier.Verify(req.Current, s.creds.Get(role, idUpper)) {
		return newError(ErrInvalidCredentials, "Current password is incorrect.")
	}

	s.creds.Set(ctx, role, idUpper, req.New)
	s.log.Info("password changed", zap.String("role", string(role)), zap.String("id", idUpper))
	return nil
}

// LastLogin returns the stored last-login timestamp of an identity.
func (s *AuthService) LastLogin(role models.Role, id string) (string, bool) {
	return s.lastLogin.Get(models.IdentityKey(role, id))
}

func (s *AuthService) dataReady() error {
	if err := s.catalog.Err(); err != nil {
		s.log.Error("reference data unavailable", zap.Error(err))
		return newError(ErrDataLoad, DataLoadMessage)
	}
	return nil
}

func (s *AuthService) lookup(role models.Role, id string) (session.Identity, bool) {
	switch role {
	case models.RoleDoctor:
		if d, ok := s.catalog.Doctor(id); ok {
			return session.Identity{Role: role, Doctor: &d}, true
		}
	case models.RolePatient:
		if p, ok := s.catalog.Patient(id); ok {
			return session.Identity{Role: role, Patient: &p}, true
		}
	}
	return session.Identity{}, false
}

func displayName(id session.Identity) string {
	switch {
	case id.Doctor != nil:
		return id.Doctor.DoctorName
	case id.Patient != nil:
		return id.Patient.PatientName
	}
	return ""
}

func roleTitle(role models.Role) string {
	switch role {
	case models.RoleDoctor:
		return "Doctor"
	case models.RolePatient:
		return "Patient"
	}
	return "Admin"
}
