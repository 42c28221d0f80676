package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/atinyakov/rccdash/internal/middleware"
	"github.com/atinyakov/rccdash/internal/models"
	"github.com/atinyakov/rccdash/internal/service"
)

// DashboardService defines the read side required by DashboardHandler.
type DashboardService interface {
	Admin() (service.AdminView, error)
	Doctor(doctorID string, q service.EventQuery) (service.DoctorView, error)
	Patient(patientID string, q service.EventQuery) (service.PatientView, error)
}

// MeetingService defines the meeting operations required by DashboardHandler.
type MeetingService interface {
	ScheduleByDoctor(ctx context.Context, doctorID, patientID, datetime, meetingType string) (models.Meeting, error)
	RequestByPatient(ctx context.Context, patientID, datetime, meetingType string) (models.Meeting, error)
}

// DashboardHandler serves the dashboard of the session's role.
type DashboardHandler struct {
	DashboardService DashboardService
	MeetingService   MeetingService
}

// Dashboard handles GET /api/dashboard. Doctor and patient views accept
// filter (all, 24h, 7d, 30d), limit and, for doctors, patient.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.GetSessionFromContext(r.Context())

	q := service.EventQuery{
		Window:  service.Window(r.URL.Query().Get("filter")),
		Patient: r.URL.Query().Get("patient"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		q.Limit = n
	}

	var (
		view any
		err  error
	)
	switch s.Role {
	case models.RoleAdmin:
		view, err = h.DashboardService.Admin()
	case models.RoleDoctor:
		view, err = h.DashboardService.Doctor(s.EntityID(), q)
	case models.RolePatient:
		view, err = h.DashboardService.Patient(s.EntityID(), q)
	default:
		http.Error(w, "no active session", http.StatusUnauthorized)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// MeetingRequest is the body of POST /api/meetings. PatientID is ignored
// for patients, who always book with their own doctor.
type MeetingRequest struct {
	PatientID string `json:"patient_id"`
	DateTime  string `json:"datetime"`
	Type      string `json:"type"`
}

// CreateMeeting handles POST /api/meetings for doctors and patients.
func (h *DashboardHandler) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.GetSessionFromContext(r.Context())

	var req MeetingRequest
	if !decode(w, r, &req) {
		return
	}

	var (
		m   models.Meeting
		msg string
		err error
	)
	switch s.Role {
	case models.RoleDoctor:
		m, err = h.MeetingService.ScheduleByDoctor(r.Context(), s.EntityID(), req.PatientID, req.DateTime, req.Type)
		msg = service.MeetingCreatedMessage
	case models.RolePatient:
		m, err = h.MeetingService.RequestByPatient(r.Context(), s.EntityID(), req.DateTime, req.Type)
		msg = service.MeetingRequestedMessage
	default:
		http.Error(w, "meetings are created from doctor or patient dashboards", http.StatusForbidden)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"meeting": m, "message": msg})
}
