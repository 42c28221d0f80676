// Package models defines the core data structures for identities,
// reference data, meetings and notifications.
package models

import "strings"

// Role is the dashboard role a user logs in with.
type Role string

const (
	// RoleAdmin is the single program administrator.
	RoleAdmin Role = "admin"
	// RoleDoctor is a doctor from the reference catalog.
	RoleDoctor Role = "doctor"
	// RolePatient is a patient from the reference catalog.
	RolePatient Role = "patient"
)

// ParseRole maps user input to a Role. It is case-insensitive and reports
// false for empty or unknown input.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleDoctor:
		return RoleDoctor, true
	case RolePatient:
		return RolePatient, true
	}
	return "", false
}

// IdentityKey builds the "role:ID" key shared by credentials, lockouts and
// last-login records. The identifier is uppercased.
func IdentityKey(role Role, id string) string {
	return string(role) + ":" + strings.ToUpper(strings.TrimSpace(id))
}

// DefaultPassword is the password an identity has until a credential record
// is stored for it.
func DefaultPassword(id string) string {
	return strings.ToUpper(strings.TrimSpace(id)) + "@123"
}

// CredentialRecord holds a stored password. It always replaces the previous
// record as a whole.
type CredentialRecord struct {
	Password string `json:"password"`
}

// LoginAttemptRecord tracks failed logins for one identity.
type LoginAttemptRecord struct {
	// Count is the number of consecutive failures.
	Count int `json:"count"`
	// LockUntil is the lock expiry in Unix milliseconds, set once Count reaches the limit.
	LockUntil *int64 `json:"lockUntil,omitempty"`
}

// Meeting statuses and creators.
const (
	MeetingScheduled = "Scheduled"
	MeetingCompleted = "Completed"

	CreatedBySystem  = "system"
	CreatedByDoctor  = "doctor"
	CreatedByPatient = "patient"
)

// Meeting is a scheduled telehealth visit.
type Meeting struct {
	ID        string `json:"id"`
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id"`
	// DateTime is a local ISO timestamp without zone, e.g. 2025-12-01T09:30.
	DateTime  string `json:"datetime"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	CreatedBy string `json:"createdBy,omitempty"`
}

// Notification levels.
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// Notification is a user-facing alert addressed to a role and optionally to
// a doctor and/or patient.
type Notification struct {
	ID        string `json:"id"`
	Role      Role   `json:"role,omitempty"`
	DoctorID  string `json:"doctor_id,omitempty"`
	PatientID string `json:"patient_id,omitempty"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Time      string `json:"time"`
}

// Doctor is a row of doctors.csv.
type Doctor struct {
	DoctorID        string `json:"doctor_id"`
	DoctorName      string `json:"doctor_name"`
	Specialization  string `json:"specialization"`
	ExperienceYears string `json:"experience_years"`
	Shift           string `json:"shift"`
	City            string `json:"city"`
}

// Patient is a row of patients.csv.
type Patient struct {
	PatientID        string `json:"patient_id"`
	PatientName      string `json:"patient_name"`
	Age              string `json:"age"`
	Gender           string `json:"gender"`
	ChronicCondition string `json:"chronic_condition"`
	DeviceType       string `json:"device_type"`
	City             string `json:"city"`
	DoctorID         string `json:"doctor_id"`
}

// RPMEvent is a row of rpm_events.csv: one alert from a monitoring device.
type RPMEvent struct {
	EventID         string `json:"event_id"`
	PatientID       string `json:"patient_id"`
	DoctorID        string `json:"doctor_id"`
	Date            string `json:"date"`
	AlertTime       string `json:"alert_time"`
	Severity        string `json:"severity"`
	ResponseMinutes string `json:"response_minutes"`
	HeartRate       string `json:"heart_rate"`
	BPSys           string `json:"bp_sys"`
	BPDia           string `json:"bp_dia"`
	UptimeMinutes   string `json:"uptime_minutes"`
}

// When returns the timestamp the event is sorted and filtered by.
func (e RPMEvent) When() string {
	if e.AlertTime != "" {
		return e.AlertTime
	}
	return e.Date
}
