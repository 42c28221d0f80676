// Package catalog holds the read-only reference data (doctors, patients and
// RPM events) loaded once from tabular sources at start.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/atinyakov/rccdash/internal/models"
	"golang.org/x/sync/errgroup"
)

// Source names.
const (
	DoctorsSource  = "doctors.csv"
	PatientsSource = "patients.csv"
	EventsSource   = "rpm_events.csv"
)

// ErrDataLoad marks a failed initial load of reference data.
var ErrDataLoad = errors.New("reference data load failed")

// Source opens a named tabular source.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// DirSource reads sources from files in a directory.
type DirSource string

// Open implements Source.
func (d DirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(string(d), name))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	return f, nil
}

// ReadRecords parses CSV with a header row into header-keyed records.
// Blank lines are skipped and values are trimmed.
func ReadRecords(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var out []map[string]string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if isBlank(row) {
			continue
		}
		rec := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(row) {
				rec[h] = strings.TrimSpace(row[i])
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Catalog is the in-memory reference data. It is never mutated after Load.
type Catalog struct {
	doctors  []models.Doctor
	patients []models.Patient
	events   []models.RPMEvent
	err      error
}

// New builds a catalog from already parsed rows.
func New(doctors []models.Doctor, patients []models.Patient, events []models.RPMEvent) *Catalog {
	return &Catalog{doctors: doctors, patients: patients, events: events}
}

// Failed returns an empty catalog that reports err from Err.
func Failed(err error) *Catalog {
	if !errors.Is(err, ErrDataLoad) {
		err = fmt.Errorf("%w: %v", ErrDataLoad, err)
	}
	return &Catalog{err: err}
}

// Load reads the three sources concurrently. All of them must load.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	var docRows, patRows, evRows []map[string]string

	g, gctx := errgroup.WithContext(ctx)
	load := func(name string, dst *[]map[string]string) {
		g.Go(func() error {
			rc, err := src.Open(gctx, name)
			if err != nil {
				return err
			}
			defer rc.Close()
			rows, err := ReadRecords(rc)
			if err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}
			*dst = rows
			return nil
		})
	}
	load(EventsSource, &evRows)
	load(DoctorsSource, &docRows)
	load(PatientsSource, &patRows)

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataLoad, err)
	}

	c := &Catalog{
		doctors:  make([]models.Doctor, 0, len(docRows)),
		patients: make([]models.Patient, 0, len(patRows)),
		events:   make([]models.RPMEvent, 0, len(evRows)),
	}
	for _, r := range docRows {
		c.doctors = append(c.doctors, models.Doctor{
			DoctorID:        r["doctor_id"],
			DoctorName:      r["doctor_name"],
			Specialization:  r["specialization"],
			ExperienceYears: r["experience_years"],
			Shift:           r["shift"],
			City:            r["city"],
		})
	}
	for _, r := range patRows {
		c.patients = append(c.patients, models.Patient{
			PatientID:        r["patient_id"],
			PatientName:      r["patient_name"],
			Age:              r["age"],
			Gender:           r["gender"],
			ChronicCondition: r["chronic_condition"],
			DeviceType:       r["device_type"],
			City:             r["city"],
			DoctorID:         r["doctor_id"],
		})
	}
	for _, r := range evRows {
		c.events = append(c.events, models.RPMEvent{
			EventID:         r["event_id"],
			PatientID:       r["patient_id"],
			DoctorID:        r["doctor_id"],
			Date:            r["date"],
			AlertTime:       r["alert_time"],
			Severity:        r["severity"],
			ResponseMinutes: r["response_minutes"],
			HeartRate:       r["heart_rate"],
			BPSys:           r["bp_sys"],
			BPDia:           r["bp_dia"],
			UptimeMinutes:   r["uptime_minutes"],
		})
	}
	return c, nil
}

// Err reports why the catalog failed to load, or nil.
func (c *Catalog) Err() error { return c.err }

// Doctor finds a doctor by id, ignoring case.
func (c *Catalog) Doctor(id string) (models.Doctor, bool) {
	id = strings.TrimSpace(id)
	for _, d := range c.doctors {
		if strings.EqualFold(d.DoctorID, id) {
			return d, true
		}
	}
	return models.Doctor{}, false
}

// Patient finds a patient by id, ignoring case.
func (c *Catalog) Patient(id string) (models.Patient, bool) {
	id = strings.TrimSpace(id)
	for _, p := range c.patients {
		if strings.EqualFold(p.PatientID, id) {
			return p, true
		}
	}
	return models.Patient{}, false
}

// Exists reports whether id is a known doctor or patient for role.
func (c *Catalog) Exists(role models.Role, id string) bool {
	switch role {
	case models.RoleDoctor:
		_, ok := c.Doctor(id)
		return ok
	case models.RolePatient:
		_, ok := c.Patient(id)
		return ok
	}
	return false
}

// Doctors returns every doctor.
func (c *Catalog) Doctors() []models.Doctor { return append([]models.Doctor(nil), c.doctors...) }

// Patients returns every patient.
func (c *Catalog) Patients() []models.Patient { return append([]models.Patient(nil), c.patients...) }

// Events returns every RPM event.
func (c *Catalog) Events() []models.RPMEvent { return append([]models.RPMEvent(nil), c.events...) }

// PatientsOf returns the patients assigned to doctorID.
func (c *Catalog) PatientsOf(doctorID string) []models.Patient {
	var out []models.Patient
	for _, p := range c.patients {
		if p.DoctorID == doctorID {
			out = append(out, p)
		}
	}
	return out
}

// EventsForDoctor returns the events attributed to doctorID.
func (c *Catalog) EventsForDoctor(doctorID string) []models.RPMEvent {
	var out []models.RPMEvent
	for _, e := range c.events {
		if e.DoctorID == doctorID {
			out = append(out, e)
		}
	}
	return out
}

// EventsForPatient returns the events of patientID.
func (c *Catalog) EventsForPatient(patientID string) []models.RPMEvent {
	var out []models.RPMEvent
	for _, e := range c.events {
		if e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out
}

// AverageResponse is the mean response_minutes over all events. Values that
// do not parse count as zero.
func (c *Catalog) AverageResponse() float64 {
	if len(c.events) == 0 {
		return 0
	}
	var sum float64
	for _, e := range c.events {
		v, err := strconv.ParseFloat(strings.TrimSpace(e.ResponseMinutes), 64)
		if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			sum += v
		}
	}
	return sum / float64(len(c.events))
}
