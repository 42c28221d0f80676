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

// DefaultMeetings seeds the log on first run.
func DefaultMeetings() []models.Meeting {
	return []models.Meeting{
		{ID: "M-1001", DoctorID: "D001", PatientID: "P001", DateTime: "2025-12-01T09:30", Type: "Virtual check-in", Status: models.MeetingScheduled, CreatedBy: models.CreatedBySystem},
		{ID: "M-1002", DoctorID: "D001", PatientID: "P002", DateTime: "2025-12-01T14:00", Type: "Follow-up", Status: models.MeetingScheduled, CreatedBy: models.CreatedBySystem},
		{ID: "M-1003", DoctorID: "D002", PatientID: "P003", DateTime: "2025-11-29T10:00", Type: "Initial consult", Status: models.MeetingCompleted, CreatedBy: models.CreatedBySystem},
	}
}

// MeetingLog is the append-only log of telehealth meetings.
type MeetingLog struct {
	mu       sync.Mutex
	p        persister
	ids      *IDGenerator
	meetings []models.Meeting
}

// NewMeetingLog loads the meetings namespace. When it holds no array the
// seed meetings are installed and persisted.
func NewMeetingLog(ctx context.Context, store kvstore.Store, clk clock.Clock, log *zap.Logger) *MeetingLog {
	l := &MeetingLog{
		p:   newPersister(store, kvstore.KeyMeetings, log),
		ids: NewIDGenerator(clk, "M-"),
	}
	var stored []models.Meeting
	if kvstore.LoadJSON(ctx, store, kvstore.KeyMeetings, &stored) && stored != nil {
		l.meetings = stored
		return l
	}
	l.meetings = DefaultMeetings()
	l.p.save(ctx, l.meetings)
	return l
}

// Append assigns an id to m, stores it and persists the whole log.
func (l *MeetingLog) Append(ctx context.Context, m models.Meeting) models.Meeting {
	l.mu.Lock()
	defer l.mu.Unlock()

	m.ID = l.ids.Next(l.taken)
	l.meetings = append(l.meetings, m)
	l.p.save(ctx, l.meetings)
	return m
}

func (l *MeetingLog) taken(id string) bool {
	return slices.ContainsFunc(l.meetings, func(m models.Meeting) bool { return m.ID == id })
}

// Query returns the meetings matching filter, sorted by cmp. Either may be nil.
func (l *MeetingLog) Query(filter func(models.Meeting) bool, cmp func(a, b models.Meeting) int) []models.Meeting {
	l.mu.Lock()
	out := make([]models.Meeting, 0, len(l.meetings))
	for _, m := range l.meetings {
		if filter == nil || filter(m) {
			out = append(out, m)
		}
	}
	l.mu.Unlock()

	if cmp != nil {
		slices.SortStableFunc(out, cmp)
	}
	return out
}

// Len returns the number of meetings in the log.
func (l *MeetingLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.meetings)
}
