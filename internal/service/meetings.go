package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/atinyakov/rccdash/internal/models"
	"go.uber.org/zap"
)

// Confirmation texts of the two meeting forms.
const (
	MeetingCreatedMessage   = "Meeting created and added to your schedule."
	MeetingRequestedMessage = "Meeting request submitted."
)

// MeetingAppender appends to the meeting log.
type MeetingAppender interface {
	Append(ctx context.Context, m models.Meeting) models.Meeting
}

// NotificationAppender appends to the notification log.
type NotificationAppender interface {
	Append(ctx context.Context, n models.Notification) models.Notification
}

// MeetingService creates meetings from the doctor and patient dashboards.
// Every meeting is paired with a notification for the other party.
type MeetingService struct {
	mu            sync.Mutex
	catalog       Catalog
	meetings      MeetingAppender
	notifications NotificationAppender
	log           *zap.Logger
}

// NewMeetingService wires the meeting forms.
func NewMeetingService(catalog Catalog, meetings MeetingAppender, notifications NotificationAppender, log *zap.Logger) *MeetingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MeetingService{
		catalog:       catalog,
		meetings:      meetings,
		notifications: notifications,
		log:           log,
	}
}

// ScheduleByDoctor books a meeting between doctorID and one of the doctor's
// assigned patients and notifies the patient.
func (s *MeetingService) ScheduleByDoctor(ctx context.Context, doctorID, patientID, datetime, meetingType string) (models.Meeting, error) {
	doctorID = strings.ToUpper(strings.TrimSpace(doctorID))
	patientID = strings.ToUpper(strings.TrimSpace(patientID))
	datetime = strings.TrimSpace(datetime)
	meetingType = strings.TrimSpace(meetingType)
	if doctorID == "" || patientID == "" || datetime == "" || meetingType == "" {
		return models.Meeting{}, newError(ErrValidation, "Please fill all fields.")
	}
	if err := s.catalog.Err(); err != nil {
		return models.Meeting{}, newError(ErrDataLoad, DataLoadMessage)
	}
	doctor, ok := s.catalog.Doctor(doctorID)
	if !ok {
		return models.Meeting{}, newError(ErrUnknownIdentity, "Doctor record not found.")
	}
	patient, ok := s.catalog.Patient(patientID)
	if !ok {
		return models.Meeting{}, newError(ErrUnknownIdentity, "Patient record not found.")
	}
	if !strings.EqualFold(patient.DoctorID, doctor.DoctorID) {
		return models.Meeting{}, newError(ErrValidation, "Select one of your assigned patients.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.meetings.Append(ctx, models.Meeting{
		DoctorID:  doctor.DoctorID,
		PatientID: patient.PatientID,
		DateTime:  datetime,
		Type:      meetingType,
		Status:    models.MeetingScheduled,
		CreatedBy: models.CreatedByDoctor,
	})
	s.notifications.Append(ctx, models.Notification{
		Role:      models.RolePatient,
		PatientID: patient.PatientID,
		Level:     models.LevelMedium,
		Message:   fmt.Sprintf("New meeting scheduled with your doctor on %s (%s).", FormatShortDate(datetime), meetingType),
	})
	s.log.Info("meeting scheduled",
		zap.String("meeting", m.ID),
		zap.String("doctor", m.DoctorID),
		zap.String("patient", m.PatientID),
	)
	return m, nil
}

// RequestByPatient books a meeting with the patient's assigned doctor and
// notifies that doctor.
func (s *MeetingService) RequestByPatient(ctx context.Context, patientID, datetime, meetingType string) (models.Meeting, error) {
	patientID = strings.ToUpper(strings.TrimSpace(patientID))
	datetime = strings.TrimSpace(datetime)
	meetingType = strings.TrimSpace(meetingType)
	if datetime == "" || meetingType == "" {
		return models.Meeting{}, newError(ErrValidation, "Please fill all fields.")
	}
	if err := s.catalog.Err(); err != nil {
		return models.Meeting{}, newError(ErrDataLoad, DataLoadMessage)
	}
	patient, ok := s.catalog.Patient(patientID)
	if !ok {
		return models.Meeting{}, newError(ErrUnknownIdentity, "Patient record not found.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.meetings.Append(ctx, models.Meeting{
		DoctorID:  patient.DoctorID,
		PatientID: patient.PatientID,
		DateTime:  datetime,
		Type:      meetingType,
		Status:    models.MeetingScheduled,
		CreatedBy: models.CreatedByPatient,
	})
	s.notifications.Append(ctx, models.Notification{
		Role:      models.RoleDoctor,
		DoctorID:  patient.DoctorID,
		PatientID: patient.PatientID,
		Level:     models.LevelMedium,
		Message:   fmt.Sprintf("Patient %s requested a %s on %s.", patient.PatientName, meetingType, FormatShortDate(datetime)),
	})
	s.log.Info("meeting requested",
		zap.String("meeting", m.ID),
		zap.String("doctor", m.DoctorID),
		zap.String("patient", m.PatientID),
	)
	return m, nil
}
