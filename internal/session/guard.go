// Package session holds the single active dashboard session and expires it
// after a period without user interaction.
package session

import (
	"sync"
	"time"

	"github.com/atinyakov/rccdash/internal/clock"
	"github.com/atinyakov/rccdash/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultIdleTimeout ends a session after this long without interaction.
	DefaultIdleTimeout = 15 * time.Minute
	// ExpiredMessage is shown when the idle timeout ends a session.
	ExpiredMessage = "Your session expired for security. Please log in again."
)

// Identity is who a session belongs to. Doctor or Patient is set for those
// roles; both are nil for admin.
type Identity struct {
	Role    models.Role     `json:"role"`
	Doctor  *models.Doctor  `json:"doctor,omitempty"`
	Patient *models.Patient `json:"patient,omitempty"`
}

// EntityID returns the doctor or patient id, or "" for admin.
func (i Identity) EntityID() string {
	switch {
	case i.Doctor != nil:
		return i.Doctor.DoctorID
	case i.Patient != nil:
		return i.Patient.PatientID
	}
	return ""
}

// Session is the active login.
type Session struct {
	ID string `json:"id"`
	Identity
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Notifier is the view layer the guard reports to.
type Notifier interface {
	// SessionStarted is called after a login hands its identity over.
	SessionStarted(s Session)
	// SessionEnded is called when the session is gone; reason may be empty.
	SessionEnded(reason string)
}

// Guard owns the process's single session.
type Guard struct {
	mu       sync.Mutex
	clock    clock.Clock
	timeout  time.Duration
	notifier Notifier
	log      *zap.Logger

	current *Session
	timer   clock.Timer
}

// NewGuard creates a Guard. A non-positive timeout means DefaultIdleTimeout;
// notifier and log may be nil.
func NewGuard(clk clock.Clock, timeout time.Duration, notifier Notifier, log *zap.Logger) *Guard {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{clock: clk, timeout: timeout, notifier: notifier, log: log}
}

// Timeout returns the idle timeout.
func (g *Guard) Timeout() time.Duration { return g.timeout }

// Start begins a session for id, replacing any active one, and schedules the
// idle check.
func (g *Guard) Start(id Identity) Session {
	g.mu.Lock()
	now := g.clock.Now()
	s := &Session{
		ID:           uuid.NewString(),
		Identity:     id,
		StartedAt:    now,
		LastActivity: now,
	}
	if g.current != nil {
		g.log.Info("replacing active session", zap.String("session", g.current.ID))
	}
	g.current = s
	g.scheduleLocked()
	out := *s
	g.mu.Unlock()

	g.log.Info("session started", zap.String("session", out.ID), zap.String("role", string(out.Role)), zap.String("entity", out.EntityID()))
	if g.notifier != nil {
		g.notifier.SessionStarted(out)
	}
	return out
}

// Touch records user interaction. It is a no-op without an active session.
func (g *Guard) Touch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return
	}
	g.current.LastActivity = g.clock.Now()
	g.scheduleLocked()
}

// CheckIdle ends the session when it has been idle for the full timeout.
func (g *Guard) CheckIdle() {
	g.mu.Lock()
	if g.current == nil || g.clock.Now().Sub(g.current.LastActivity) < g.timeout {
		g.mu.Unlock()
		return
	}
	g.log.Info("session expired", zap.String("session", g.current.ID))
	g.endLocked()
	g.mu.Unlock()

	if g.notifier != nil {
		g.notifier.SessionEnded(ExpiredMessage)
	}
}

// End clears the session and cancels the idle check. reason is passed on to
// the view layer.
func (g *Guard) End(reason string) {
	g.mu.Lock()
	if g.current != nil {
		g.log.Info("session ended", zap.String("session", g.current.ID))
	}
	g.endLocked()
	g.mu.Unlock()

	if g.notifier != nil {
		g.notifier.SessionEnded(reason)
	}
}

// Current returns a copy of the active session.
func (g *Guard) Current() (Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return Session{}, false
	}
	return *g.current, true
}

func (g *Guard) scheduleLocked() {
	if g.timer != nil {
		g.timer.Stop()
	}
	g.timer = g.clock.AfterFunc(g.timeout, g.CheckIdle)
}

func (g *Guard) endLocked() {
	g.current = nil
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}
