// Package api is the HTTP client of the dashboard API used by the CLI.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/atinyakov/rccdash/internal/middleware"
	"github.com/atinyakov/rccdash/internal/models"
	handler "github.com/atinyakov/rccdash/internal/server/handler/http"
	"github.com/atinyakov/rccdash/internal/service"
	"github.com/atinyakov/rccdash/internal/session"
)

// Error is a non-2xx response. Message is the server's user-facing text.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("server error: %s", e.Message)
}

// Client talks to one dashboard server.
type Client struct {
	http      *http.Client
	baseURL   string
	sessionID string
}

// NewClient returns a client for baseURL, e.g. http://localhost:8080.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

// SetSession sets the id sent in the session header.
func (c *Client) SetSession(id string) { c.sessionID = id }

// SessionID returns the id sent in the session header.
func (c *Client) SessionID() string { return c.sessionID }

// Login starts a session and remembers its id.
func (c *Client) Login(ctx context.Context, req service.LoginRequest) (session.Session, error) {
	var resp handler.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", req, &resp); err != nil {
		return session.Session{}, err
	}
	if resp.Session == nil {
		return session.Session{}, fmt.Errorf("invalid response: no session")
	}
	c.sessionID = resp.Session.ID
	return *resp.Session, nil
}

// Logout ends the session and forgets its id.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
	c.sessionID = ""
	return err
}

// Session reports the server's session state.
func (c *Client) Session(ctx context.Context) (handler.SessionResponse, error) {
	var resp handler.SessionResponse
	err := c.do(ctx, http.MethodGet, "/api/session", nil, &resp)
	return resp, err
}

// Signup attaches a password to an existing doctor or patient.
func (c *Client) Signup(ctx context.Context, req service.SignupRequest) (service.SignupResult, error) {
	var res service.SignupResult
	err := c.do(ctx, http.MethodPost, "/api/signup", req, &res)
	return res, err
}

// ForgotPassword resets to the default password and returns the server message.
func (c *Client) ForgotPassword(ctx context.Context, role, id string) (string, error) {
	var resp map[string]string
	body := map[string]string{"role": role, "id": id}
	if err := c.do(ctx, http.MethodPost, "/api/password/forgot", body, &resp); err != nil {
		return "", err
	}
	return resp["message"], nil
}

// ChangePassword replaces a password and returns the server message.
func (c *Client) ChangePassword(ctx context.Context, req service.ChangePasswordRequest) (string, error) {
	var resp map[string]string
	if err := c.do(ctx, http.MethodPost, "/api/password/change", req, &resp); err != nil {
		return "", err
	}
	return resp["message"], nil
}

// DashboardQuery are the event table controls.
type DashboardQuery struct {
	Filter  string
	Patient string
	Limit   int
}

// Dashboard decodes the view of the session's role into dst.
func (c *Client) Dashboard(ctx context.Context, q DashboardQuery, dst any) error {
	v := url.Values{}
	if q.Filter != "" {
		v.Set("filter", q.Filter)
	}
	if q.Patient != "" {
		v.Set("patient", q.Patient)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	path := "/api/dashboard"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil, dst)
}

// CreateMeeting books a meeting and returns it with the server message.
func (c *Client) CreateMeeting(ctx context.Context, req handler.MeetingRequest) (models.Meeting, string, error) {
	var resp struct {
		Meeting models.Meeting `json:"meeting"`
		Message string         `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/meetings", req, &resp); err != nil {
		return models.Meeting{}, "", err
	}
	return resp.Meeting, resp.Message, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sessionID != "" {
		req.Header.Set(middleware.SessionHeader, c.sessionID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return &Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if dst == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}
