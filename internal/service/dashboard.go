package service

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/atinyakov/rccdash/internal/clock"
	"github.com/atinyakov/rccdash/internal/models"
)

// Paging of the event tables.
const (
	DefaultEventLimit = 10
	EventPageSize     = 10

	adminNotificationLimit = 8
	adminMeetingLimit      = 20
)

// JoinURL is offered for every scheduled meeting.
const JoinURL = "https://zoom.us"

// Window limits event tables to a trailing time range.
type Window string

// Supported windows.
const (
	WindowAll Window = "all"
	Window24h Window = "24h"
	Window7d  Window = "7d"
	Window30d Window = "30d"
)

// patientsAll selects the events of every assigned patient.
const patientsAll = "all"

// ParseWindow maps a filter value to a Window. Empty input means all.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case "":
		return WindowAll, nil
	case WindowAll, Window24h, Window7d, Window30d:
		return w, nil
	}
	return "", newError(ErrValidation, fmt.Sprintf("Unknown time window %q.", s))
}

// Duration returns the window length, or 0 for all.
func (w Window) Duration() time.Duration {
	const day = 24 * time.Hour
	switch w {
	case Window24h:
		return day
	case Window7d:
		return 7 * day
	case Window30d:
		return 30 * day
	}
	return 0
}

// EventQuery selects rows of an event table.
type EventQuery struct {
	Window Window
	// Patient is a patient id or "all". Patient views ignore it.
	Patient string
	// Limit caps the rows; 0 means DefaultEventLimit.
	Limit int
}

// DashboardCatalog is the reference data the dashboards read.
type DashboardCatalog interface {
	Catalog
	Doctors() []models.Doctor
	Patients() []models.Patient
	Events() []models.RPMEvent
	PatientsOf(doctorID string) []models.Patient
	EventsForDoctor(doctorID string) []models.RPMEvent
	EventsForPatient(patientID string) []models.RPMEvent
	AverageResponse() float64
}

// MeetingQuerier reads the meeting log.
type MeetingQuerier interface {
	Query(filter func(models.Meeting) bool, cmp func(a, b models.Meeting) int) []models.Meeting
}

// NotificationQuerier reads the notification log.
type NotificationQuerier interface {
	Query(filter func(models.Notification) bool, cmp func(a, b models.Notification) int) []models.Notification
}

// LastLoginReader reads last-login timestamps.
type LastLoginReader interface {
	Get(key string) (string, bool)
}

// EventRow is an RPM event ready for display.
type EventRow struct {
	models.RPMEvent
	When string `json:"when"`
}

// MeetingRow is a meeting with both parties resolved to names.
type MeetingRow struct {
	models.Meeting
	DoctorName  string `json:"doctor_name"`
	PatientName string `json:"patient_name"`
	When        string `json:"when"`
	JoinURL     string `json:"join_url,omitempty"`
}

// NotificationRow is a notification ready for display.
type NotificationRow struct {
	models.Notification
	When string `json:"when"`
	// Source is the addressed role, or "system".
	Source string `json:"source"`
}

// SeveritySummary counts the displayed events per severity.
type SeveritySummary struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
	Shown  int `json:"shown"`
}

func (s SeveritySummary) String() string {
	return fmt.Sprintf("High: %d · Medium: %d · Low: %d · Showing %d event(s).", s.High, s.Medium, s.Low, s.Shown)
}

// AdminView is the program overview.
type AdminView struct {
	TotalPatients   int               `json:"total_patients"`
	TotalDoctors    int               `json:"total_doctors"`
	TotalEvents     int               `json:"total_events"`
	AverageResponse float64           `json:"avg_response_minutes"`
	LastLogin       string            `json:"last_login,omitempty"`
	Notifications   []NotificationRow `json:"notifications"`
	Meetings        []MeetingRow      `json:"meetings"`
}

// DoctorView is a doctor's dashboard.
type DoctorView struct {
	Doctor        models.Doctor     `json:"doctor"`
	LastLogin     string            `json:"last_login,omitempty"`
	Patients      []models.Patient  `json:"patients"`
	Events        []EventRow        `json:"events"`
	Summary       SeveritySummary   `json:"summary"`
	HasMore       bool              `json:"has_more"`
	Meetings      []MeetingRow      `json:"meetings"`
	Notifications []NotificationRow `json:"notifications"`
}

// PatientView is a patient's dashboard.
type PatientView struct {
	Patient       models.Patient    `json:"patient"`
	DoctorName    string            `json:"doctor_name"`
	LastLogin     string            `json:"last_login,omitempty"`
	Events        []EventRow        `json:"events"`
	HasMore       bool              `json:"has_more"`
	Meetings      []MeetingRow      `json:"meetings"`
	Notifications []NotificationRow `json:"notifications"`
}

// DashboardService answers the read-only dashboard queries.
type DashboardService struct {
	catalog       DashboardCatalog
	meetings      MeetingQuerier
	notifications NotificationQuerier
	lastLogin     LastLoginReader
	clock         clock.Clock
}

// NewDashboardService wires the dashboard queries.
func NewDashboardService(catalog DashboardCatalog, meetings MeetingQuerier, notifications NotificationQuerier, lastLogin LastLoginReader, clk clock.Clock) *DashboardService {
	return &DashboardService{
		catalog:       catalog,
		meetings:      meetings,
		notifications: notifications,
		lastLogin:     lastLogin,
		clock:         clk,
	}
}

// Admin builds the program overview.
func (s *DashboardService) Admin() (AdminView, error) {
	if err := s.catalog.Err(); err != nil {
		return AdminView{}, newError(ErrDataLoad, DataLoadMessage)
	}
	v := AdminView{
		TotalPatients:   len(s.catalog.Patients()),
		TotalDoctors:    len(s.catalog.Doctors()),
		TotalEvents:     len(s.catalog.Events()),
		AverageResponse: math.Round(s.catalog.AverageResponse()*10) / 10,
		LastLogin:       s.formattedLastLogin(models.IdentityKey(models.RoleAdmin, AdminEmail)),
	}

	notes := s.notifications.Query(func(n models.Notification) bool {
		return n.Role == models.RoleAdmin || n.Role == ""
	}, newestNotificationFirst)
	v.Notifications = s.notificationRows(head(notes, adminNotificationLimit))

	meetings := s.meetings.Query(nil, func(a, b models.Meeting) int {
		return compareTimesDesc(a.DateTime, b.DateTime)
	})
	v.Meetings = s.meetingRows(head(meetings, adminMeetingLimit))
	for i := range v.Meetings {
		if v.Meetings[i].CreatedBy == "" {
			v.Meetings[i].CreatedBy = models.CreatedBySystem
		}
	}
	return v, nil
}

// Doctor builds the dashboard of doctorID.
func (s *DashboardService) Doctor(doctorID string, q EventQuery) (DoctorView, error) {
	if err := s.catalog.Err(); err != nil {
		return DoctorView{}, newError(ErrDataLoad, DataLoadMessage)
	}
	doc, ok := s.catalog.Doctor(doctorID)
	if !ok {
		return DoctorView{}, newError(ErrUnknownIdentity, "Doctor record not found.")
	}
	q, err := normalize(q)
	if err != nil {
		return DoctorView{}, err
	}

	events := s.catalog.EventsForDoctor(doc.DoctorID)
	if q.Patient != patientsAll {
		events = filterEvents(events, func(e models.RPMEvent) bool {
			return strings.EqualFold(e.PatientID, q.Patient)
		})
	}
	rows, more := s.eventRows(events, q)

	v := DoctorView{
		Doctor:    doc,
		LastLogin: s.formattedLastLogin(models.IdentityKey(models.RoleDoctor, doc.DoctorID)),
		Patients:  s.catalog.PatientsOf(doc.DoctorID),
		Events:    rows,
		Summary:   summarize(rows),
		HasMore:   more,
	}
	v.Meetings = s.meetingRows(s.meetings.Query(func(m models.Meeting) bool {
		return m.DoctorID == doc.DoctorID
	}, oldestMeetingFirst))
	v.Notifications = s.notificationRows(s.notifications.Query(func(n models.Notification) bool {
		return n.Role == models.RoleDoctor && n.DoctorID == doc.DoctorID
	}, newestNotificationFirst))
	return v, nil
}

// Patient builds the dashboard of patientID.
func (s *DashboardService) Patient(patientID string, q EventQuery) (PatientView, error) {
	if err := s.catalog.Err(); err != nil {
		return PatientView{}, newError(ErrDataLoad, DataLoadMessage)
	}
	pat, ok := s.catalog.Patient(patientID)
	if !ok {
		return PatientView{}, newError(ErrUnknownIdentity, "Patient record not found.")
	}
	q, err := normalize(q)
	if err != nil {
		return PatientView{}, err
	}

	rows, more := s.eventRows(s.catalog.EventsForPatient(pat.PatientID), q)
	v := PatientView{
		Patient:    pat,
		DoctorName: pat.DoctorID,
		LastLogin:  s.formattedLastLogin(models.IdentityKey(models.RolePatient, pat.PatientID)),
		Events:     rows,
		HasMore:    more,
	}
	if doc, ok := s.catalog.Doctor(pat.DoctorID); ok {
		v.DoctorName = doc.DoctorName
	}
	v.Meetings = s.meetingRows(s.meetings.Query(func(m models.Meeting) bool {
		return m.PatientID == pat.PatientID
	}, oldestMeetingFirst))
	v.Notifications = s.notificationRows(s.notifications.Query(func(n models.Notification) bool {
		return n.Role == models.RolePatient && n.PatientID == pat.PatientID
	}, newestNotificationFirst))
	return v, nil
}

func normalize(q EventQuery) (EventQuery, error) {
	w, err := ParseWindow(string(q.Window))
	if err != nil {
		return EventQuery{}, err
	}
	q.Window = w
	switch {
	case q.Limit < 0:
		return EventQuery{}, newError(ErrValidation, "Limit must not be negative.")
	case q.Limit == 0:
		q.Limit = DefaultEventLimit
	}
	q.Patient = strings.TrimSpace(q.Patient)
	if q.Patient == "" || strings.EqualFold(q.Patient, patientsAll) {
		q.Patient = patientsAll
	}
	return q, nil
}

// eventRows sorts newest first, applies the window and the limit. It also
// reports whether rows were cut by the limit.
func (s *DashboardService) eventRows(events []models.RPMEvent, q EventQuery) ([]EventRow, bool) {
	events = slices.Clone(events)
	slices.SortStableFunc(events, func(a, b models.RPMEvent) int {
		return compareTimesDesc(a.When(), b.When())
	})
	if d := q.Window.Duration(); d > 0 {
		now := s.clock.Now()
		events = filterEvents(events, func(e models.RPMEvent) bool {
			t, ok := ParseTime(e.When())
			if !ok {
				return true
			}
			return now.Sub(t) <= d
		})
	}
	more := len(events) > q.Limit
	events = head(events, q.Limit)

	rows := make([]EventRow, 0, len(events))
	for _, e := range events {
		shown := e.Date
		if shown == "" {
			shown = e.AlertTime
		}
		rows = append(rows, EventRow{RPMEvent: e, When: FormatShortDate(shown)})
	}
	return rows, more
}

func summarize(rows []EventRow) SeveritySummary {
	sum := SeveritySummary{Shown: len(rows)}
	for _, r := range rows {
		switch strings.ToLower(strings.TrimSpace(r.Severity)) {
		case models.LevelHigh:
			sum.High++
		case models.LevelMedium:
			sum.Medium++
		case models.LevelLow:
			sum.Low++
		}
	}
	return sum
}

func (s *DashboardService) meetingRows(meetings []models.Meeting) []MeetingRow {
	rows := make([]MeetingRow, 0, len(meetings))
	for _, m := range meetings {
		row := MeetingRow{
			Meeting:     m,
			DoctorName:  m.DoctorID,
			PatientName: m.PatientID,
			When:        FormatShortDate(m.DateTime),
		}
		if d, ok := s.catalog.Doctor(m.DoctorID); ok {
			row.DoctorName = d.DoctorName
		}
		if p, ok := s.catalog.Patient(m.PatientID); ok {
			row.PatientName = p.PatientName
		}
		if m.Status == models.MeetingScheduled {
			row.JoinURL = JoinURL
		}
		rows = append(rows, row)
	}
	return rows
}

func (s *DashboardService) notificationRows(notes []models.Notification) []NotificationRow {
	rows := make([]NotificationRow, 0, len(notes))
	for _, n := range notes {
		src := string(n.Role)
		if src == "" {
			src = models.CreatedBySystem
		}
		rows = append(rows, NotificationRow{Notification: n, When: FormatShortDate(n.Time), Source: src})
	}
	return rows
}

func (s *DashboardService) formattedLastLogin(key string) string {
	ts, ok := s.lastLogin.Get(key)
	if !ok {
		return ""
	}
	return FormatShortDate(ts)
}

func newestNotificationFirst(a, b models.Notification) int { return compareTimesDesc(a.Time, b.Time) }

func oldestMeetingFirst(a, b models.Meeting) int { return compareTimes(a.DateTime, b.DateTime) }

func filterEvents(events []models.RPMEvent, keep func(models.RPMEvent) bool) []models.RPMEvent {
	out := make([]models.RPMEvent, 0, len(events))
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
