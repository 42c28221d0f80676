package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/atinyakov/rccdash/internal/clock"
	"github.com/atinyakov/rccdash/internal/kvstore"
	"github.com/atinyakov/rccdash/internal/models"
	"go.uber.org/zap"
)

// DefaultNotifications seeds the log on first run.
func DefaultNotifications() []models.Notification {
	return []models.Notification{
		{ID: "N-2001", Role: models.RoleDoctor, DoctorID: "D001", PatientID: "P001", Level: models.LevelHigh, Message: "High severity alert for P001 – SpO₂ trend requires review.", Time: "2025-11-30T08:15"},
		{ID: "N-2002", Role: models.RolePatient, PatientID: "P001", Level: models.LevelMedium, Message: "Reminder: virtual check-in with Dr. D001 tomorrow at 9:30 AM.", Time: "2025-11-30T11:00"},
		{ID: "N-2003", Role: models.RoleDoctor, DoctorID: "D002", PatientID: "P003", Level: models.LevelLow, Message: "RPM readings stable for P003 over last 24 hours.", Time: "2025-11-29T17:20"},
		{ID: "N-2004", Role: models.RoleAdmin, Level: models.LevelMedium, Message: "RPM event volume increased 15% this week – monitor staffing.", Time: "2025-11-29T09:00"},
	}
}

// NotificationLog is the append-only log of user-facing alerts.
type NotificationLog struct {
	mu    sync.Mutex
	p     persister
	clock clock.Clock
	ids   *IDGenerator
	notes []models.Notification
}

// NewNotificationLog loads the notifications namespace. When it holds no
// array the seed notifications are installed and persisted.
func NewNotificationLog(ctx context.Context, store kvstore.Store, clk clock.Clock, log *zap.Logger) *NotificationLog {
	l := &NotificationLog{
		p:     newPersister(store, kvstore.KeyNotifications, log),
		clock: clk,
		ids:   NewIDGenerator(clk, "N-"),
	}
	var stored []models.Notification
	if kvstore.LoadJSON(ctx, store, kvstore.KeyNotifications, &stored) && stored != nil {
		l.notes = stored
		return l
	}
	l.notes = DefaultNotifications()
	l.p.save(ctx, l.notes)
	return l
}

// Append assigns an id to n, stamps its time when absent, stores it and
// persists the whole log.
func (l *NotificationLog) Append(ctx context.Context, n models.Notification) models.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()

	n.ID = l.ids.Next(l.taken)
	if n.Time == "" {
		n.Time = FormatISO(l.clock.Now())
	}
	l.notes = append(l.notes, n)
	l.p.save(ctx, l.notes)
	return n
}

func (l *NotificationLog) taken(id string) bool {
	return slices.ContainsFunc(l.notes, func(n models.Notification) bool { return n.ID == id })
}

// Query returns the notifications matching filter, sorted by cmp. Either may be nil.
func (l *NotificationLog) Query(filter func(models.Notification) bool, cmp func(a, b models.Notification) int) []models.Notification {
	l.mu.Lock()
	out := make([]models.Notification, 0, len(l.notes))
	for _, n := range l.notes {
		if filter == nil || filter(n) {
			out = append(out, n)
		}
	}
	l.mu.Unlock()

	if cmp != nil {
		slices.SortStableFunc(out, cmp)
	}
	return out
}

// Len returns the number of notifications in the log.
func (l *NotificationLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.notes)
}
