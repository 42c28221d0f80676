package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/atinyakov/rccdash/internal/catalog"
	"github.com/atinyakov/rccdash/internal/clock"
	"github.com/atinyakov/rccdash/internal/kvstore"
	"github.com/atinyakov/rccdash/internal/models"
	"github.com/atinyakov/rccdash/internal/repository"
	"github.com/atinyakov/rccdash/internal/session"
	"go.uber.org/zap"
)

var testStart = time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)

func testCatalog() *catalog.Catalog {
	return catalog.New(
		[]models.Doctor{
			{DoctorID: "D001", DoctorName: "Dr. Asha Rao", Specialization: "Cardiology"},
			{DoctorID: "D002", DoctorName: "Dr. Ben Okafor", Specialization: "Endocrinology"},
		},
		[]models.Patient{
			{PatientID: "P001", PatientName: "Maya Singh", DoctorID: "D001"},
			{PatientID: "P002", PatientName: "Liam Chen", DoctorID: "D001"},
			{PatientID: "P003", PatientName: "Sara Ali", DoctorID: "D002"},
		},
		[]models.RPMEvent{
			{EventID: "E1", PatientID: "P001", DoctorID: "D001", AlertTime: "2025-12-01T08:00:00Z", Severity: "High", ResponseMinutes: "10"},
			{EventID: "E2", PatientID: "P002", DoctorID: "D001", AlertTime: "2025-11-28T09:00:00Z", Severity: "Medium", ResponseMinutes: "20"},
			{EventID: "E3", PatientID: "P001", DoctorID: "D001", Date: "2025-10-01", Severity: "Low", ResponseMinutes: "5"},
			{EventID: "E4", PatientID: "P003", DoctorID: "D002", Severity: "Low", ResponseMinutes: "abc"},
			{EventID: "E5", PatientID: "P001", DoctorID: "D001", AlertTime: "not-a-date", Severity: "high", ResponseMinutes: "15"},
		},
	)
}

type recordingNotifier struct {
	mu      sync.Mutex
	started []session.Session
	ended   []string
}

func (r *recordingNotifier) SessionStarted(s session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, s)
}

func (r *recordingNotifier) SessionEnded(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = append(r.ended, reason)
}

type harness struct {
	ctx      context.Context
	clk      *clock.Fake
	store    *kvstore.MemoryStore
	creds    *repository.CredentialStore
	attempts *repository.LoginAttemptLedger
	last     *repository.LastLoginTable
	meetings *repository.MeetingLog
	notes    *repository.NotificationLog
	notifier *recordingNotifier
	guard    *session.Guard

	auth *AuthService
	meet *MeetingService
	dash *DashboardService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, testCatalog())
}

func newHarnessWith(t *testing.T, cat *catalog.Catalog) *harness {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()
	h := &harness{
		ctx:      ctx,
		clk:      clock.NewFake(testStart),
		store:    kvstore.NewMemoryStore(),
		notifier: &recordingNotifier{},
	}
	h.creds = repository.NewCredentialStore(ctx, h.store, log)
	h.attempts = repository.NewLoginAttemptLedger(ctx, h.store, h.clk, log)
	h.last = repository.NewLastLoginTable(ctx, h.store, log)
	h.meetings = repository.NewMeetingLog(ctx, h.store, h.clk, log)
	h.notes = repository.NewNotificationLog(ctx, h.store, h.clk, log)
	h.guard = session.NewGuard(h.clk, 0, h.notifier, log)

	h.auth = NewAuthService(cat, h.creds, h.attempts, h.last, h.guard, repository.PlainVerifier{}, h.clk, log)
	h.meet = NewMeetingService(cat, h.meetings, h.notes, log)
	h.dash = NewDashboardService(cat, h.meetings, h.notes, h.last, h.clk)
	return h
}
