package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/atinyakov/rccdash/internal/client/api"
	"github.com/atinyakov/rccdash/internal/client/storage"
	"github.com/atinyakov/rccdash/internal/models"
	handler "github.com/atinyakov/rccdash/internal/server/handler/http"
	"github.com/atinyakov/rccdash/internal/service"
)

var (
	version   string
	buildDate string
)

const helpText = `Available commands:
  login                      log in as admin, doctor or patient
  signup                     create credentials for a doctor or patient
  forgot <role> <id>         reset a password to the default
  passwd                     change a password
  dash [filter] [patient]    show your dashboard (filter: all, 24h, 7d, 30d)
  more                       show 10 more events on the last dashboard
  meet                       create a meeting
  whoami                     show the current session
  logout, help, exit`

type shell struct {
	client  *api.Client
	ls      *storage.LocalStorage
	prompt  *storage.Prompter
	out     io.Writer
	baseURL string

	role  string
	query api.DashboardQuery
}

// repl runs the interactive shell loop.
func (s *shell) repl(ctx context.Context, scanner *bufio.Scanner) {
	for {
		fmt.Fprint(s.out, "rccdash> ")
		if !scanner.Scan() {
			break
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Fprintln(s.out, helpText)
		case "login":
			s.login(ctx)
		case "signup":
			res, err := s.client.Signup(ctx, s.prompt.PromptSignup())
			s.report(res.Message, err)
		case "forgot":
			if len(args) < 3 {
				fmt.Fprintln(s.out, "Usage: forgot <role> <id>")
				continue
			}
			msg, err := s.client.ForgotPassword(ctx, args[1], args[2])
			s.report(msg, err)
		case "passwd":
			msg, err := s.client.ChangePassword(ctx, s.prompt.PromptChangePassword())
			s.report(msg, err)
		case "dash":
			s.query = api.DashboardQuery{Limit: service.DefaultEventLimit}
			if len(args) > 1 {
				s.query.Filter = args[1]
			}
			if len(args) > 2 {
				s.query.Patient = args[2]
			}
			s.dashboard(ctx)
		case "more":
			s.query.Limit += service.EventPageSize
			s.dashboard(ctx)
		case "meet":
			s.meet(ctx)
		case "whoami":
			s.whoami(ctx)
		case "logout":
			err := s.client.Logout(ctx)
			s.forget()
			s.report("Logged out", err)
		case "exit":
			fmt.Fprintln(s.out, "Bye")
			return
		default:
			fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func (s *shell) login(ctx context.Context) {
	sess, err := s.client.Login(ctx, s.prompt.PromptLogin())
	if err != nil {
		s.report("", err)
		return
	}
	s.role = string(sess.Role)
	s.ls.SetSession(storage.SessionRecord{
		ID:       sess.ID,
		Role:     s.role,
		EntityID: sess.EntityID(),
		BaseURL:  s.baseURL,
	})
	if err := s.ls.Save(); err != nil {
		fmt.Fprintln(s.out, "warning: session not saved:", err)
	}
	who := sess.EntityID()
	if who == "" {
		who = service.AdminEmail
	}
	fmt.Fprintf(s.out, "Logged in as %s %s\n", s.role, who)
}

func (s *shell) forget() {
	s.role = ""
	s.ls.ClearSession()
	_ = s.ls.Save()
}

func (s *shell) whoami(ctx context.Context) {
	resp, err := s.client.Session(ctx)
	if err != nil {
		s.report("", err)
		return
	}
	if !resp.Active {
		s.forget()
		fmt.Fprintln(s.out, cmpOr(resp.Message, "Not logged in"))
		return
	}
	fmt.Fprintf(s.out, "%s %s (since %s)\n", resp.Session.Role, resp.Session.EntityID(), resp.Session.StartedAt.Format("15:04"))
}

func (s *shell) dashboard(ctx context.Context) {
	switch models.Role(s.role) {
	case models.RoleAdmin:
		var v service.AdminView
		if err := s.client.Dashboard(ctx, s.query, &v); err != nil {
			s.dashboardError(ctx, err)
			return
		}
		printAdmin(s.out, v)
	case models.RoleDoctor:
		var v service.DoctorView
		if err := s.client.Dashboard(ctx, s.query, &v); err != nil {
			s.dashboardError(ctx, err)
			return
		}
		printDoctor(s.out, v)
	case models.RolePatient:
		var v service.PatientView
		if err := s.client.Dashboard(ctx, s.query, &v); err != nil {
			s.dashboardError(ctx, err)
			return
		}
		printPatient(s.out, v)
	default:
		fmt.Fprintln(s.out, "Not logged in. Use 'login'.")
	}
}

func (s *shell) dashboardError(ctx context.Context, err error) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		s.forget()
		s.showBanner(ctx)
		return
	}
	s.report("", err)
}

// showBanner prints the server banner, e.g. the idle expiry notice.
func (s *shell) showBanner(ctx context.Context) {
	resp, err := s.client.Session(ctx)
	if err == nil && resp.Message != "" {
		fmt.Fprintln(s.out, resp.Message)
		return
	}
	fmt.Fprintln(s.out, "Session ended. Please log in again.")
}

func (s *shell) meet(ctx context.Context) {
	var req handler.MeetingRequest
	switch models.Role(s.role) {
	case models.RoleDoctor:
		req.PatientID = s.prompt.Ask("Patient ID")
	case models.RolePatient:
	default:
		fmt.Fprintln(s.out, "Meetings are created by doctors and patients.")
		return
	}
	req.DateTime = s.prompt.Ask("Date and time (YYYY-MM-DDTHH:MM)")
	req.Type = s.prompt.Ask("Type")
	m, msg, err := s.client.CreateMeeting(ctx, req)
	if err != nil {
		s.report("", err)
		return
	}
	fmt.Fprintf(s.out, "%s (%s)\n", msg, m.ID)
}

func (s *shell) report(msg string, err error) {
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			fmt.Fprintln(s.out, apiErr.Message)
			return
		}
		fmt.Fprintln(s.out, "error:", err)
		return
	}
	if msg != "" {
		fmt.Fprintln(s.out, msg)
	}
}

func printAdmin(w io.Writer, v service.AdminView) {
	fmt.Fprintf(w, "Patients: %d · Doctors: %d · RPM events: %d · Avg response: %.1f min\n",
		v.TotalPatients, v.TotalDoctors, v.TotalEvents, v.AverageResponse)
	if v.LastLogin != "" {
		fmt.Fprintf(w, "Last login: %s\n", v.LastLogin)
	}
	fmt.Fprintln(w, "\nNotifications:")
	for _, n := range v.Notifications {
		fmt.Fprintf(w, "  %s  %-7s %-6s %s\n", n.When, n.Source, n.Level, n.Message)
	}
	fmt.Fprintln(w, "\nMeetings:")
	for _, m := range v.Meetings {
		fmt.Fprintf(w, "  %s  %s  %s / %s  %s  %s  %s\n", m.ID, m.When, m.DoctorName, m.PatientName, m.Type, m.Status, m.CreatedBy)
	}
}

func printDoctor(w io.Writer, v service.DoctorView) {
	fmt.Fprintf(w, "%s (%s) · %s · %s years · %s shift · %s\n",
		v.Doctor.DoctorName, v.Doctor.DoctorID, v.Doctor.Specialization, v.Doctor.ExperienceYears, v.Doctor.Shift, v.Doctor.City)
	if v.LastLogin != "" {
		fmt.Fprintf(w, "Last login: %s\n", v.LastLogin)
	}
	fmt.Fprintln(w, "\nPatients:")
	for _, p := range v.Patients {
		fmt.Fprintf(w, "  %s  %s  %s/%s  %s  %s\n", p.PatientID, p.PatientName, p.Age, p.Gender, p.ChronicCondition, p.DeviceType)
	}
	fmt.Fprintf(w, "\nRPM events: %s\n", v.Summary)
	printEvents(w, v.Events, true)
	if v.HasMore {
		fmt.Fprintln(w, "  ... type 'more' for 10 more")
	}
	printMeetings(w, v.Meetings, false)
	printNotifications(w, v.Notifications, "No alerts yet. High severity RPM events will appear here.")
}

func printPatient(w io.Writer, v service.PatientView) {
	fmt.Fprintf(w, "%s (%s) · %s/%s · %s · %s · Doctor: %s\n",
		v.Patient.PatientName, v.Patient.PatientID, v.Patient.Age, v.Patient.Gender, v.Patient.ChronicCondition, v.Patient.DeviceType, v.DoctorName)
	if v.LastLogin != "" {
		fmt.Fprintf(w, "Last login: %s\n", v.LastLogin)
	}
	fmt.Fprintln(w, "\nRPM events:")
	printEvents(w, v.Events, false)
	if v.HasMore {
		fmt.Fprintln(w, "  ... type 'more' for 10 more")
	}
	printMeetings(w, v.Meetings, true)
	printNotifications(w, v.Notifications, "No notifications yet. New meetings and critical RPM alerts will appear here.")
}

func printEvents(w io.Writer, rows []service.EventRow, withPatient bool) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "  No RPM events for the selected filters.")
		return
	}
	for _, e := range rows {
		who := ""
		if withPatient {
			who = e.PatientID + "  "
		}
		fmt.Fprintf(w, "  %s  %s  %s%-6s resp %s min  HR %s  BP %s/%s\n",
			e.When, e.EventID, who, e.Severity, e.ResponseMinutes, e.HeartRate, e.BPSys, e.BPDia)
	}
}

func printMeetings(w io.Writer, rows []service.MeetingRow, showDoctor bool) {
	fmt.Fprintln(w, "\nMeetings:")
	if len(rows) == 0 {
		fmt.Fprintln(w, "  No meetings yet.")
		return
	}
	for _, m := range rows {
		other := m.PatientName
		if showDoctor {
			other = m.DoctorName
		}
		fmt.Fprintf(w, "  %s  %s  %s  %s  %s\n", m.When, other, m.Type, m.Status, cmpOr(m.JoinURL, "-"))
	}
}

func printNotifications(w io.Writer, rows []service.NotificationRow, empty string) {
	fmt.Fprintln(w, "\nNotifications:")
	if len(rows) == 0 {
		fmt.Fprintln(w, "  "+empty)
		return
	}
	for _, n := range rows {
		fmt.Fprintf(w, "  %s  [%s] %s\n", n.When, n.Level, n.Message)
	}
}

// main parses command-line flags and starts the shell.
func main() {
	var (
		baseURL   string
		statePath string
		showVer   bool
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&statePath, "state", storage.DefaultFile, "path to the local session file")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("RCC Dashboard Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	ls := storage.New(statePath)
	if err := ls.Load(); err != nil {
		log.Fatal(err)
	}

	client := api.NewClient(nil, baseURL)
	scanner := bufio.NewScanner(os.Stdin)
	sh := &shell{
		client:  client,
		ls:      ls,
		prompt:  storage.NewPrompter(scanner, os.Stdout),
		out:     os.Stdout,
		baseURL: baseURL,
		query:   api.DashboardQuery{Limit: service.DefaultEventLimit},
	}
	if rec, ok := ls.CurrentSession(baseURL); ok {
		client.SetSession(rec.ID)
		sh.role = rec.Role
	}
	sh.repl(context.Background(), scanner)
}
