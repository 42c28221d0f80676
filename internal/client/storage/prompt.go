package storage

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/rccdash/internal/service"
)

// Prompter asks for form fields one line at a time.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out. The scanner
// is shared with the caller's command loop.
func NewPrompter(in *bufio.Scanner, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out}
}

// Ask prints label and returns the trimmed answer.
func (p *Prompter) Ask(label string) string {
	fmt.Fprintf(p.out, "%s: ", label)
	if !p.in.Scan() {
		return ""
	}
	return strings.TrimSpace(p.in.Text())
}

// PromptLogin reads the login form. Admins are asked for an email, other
// roles for an ID.
func (p *Prompter) PromptLogin() service.LoginRequest {
	req := service.LoginRequest{Role: p.Ask("Role (admin/doctor/patient)")}
	if strings.EqualFold(req.Role, "admin") {
		req.Email = p.Ask("Email")
	} else {
		req.ID = p.Ask("ID")
	}
	req.Password = p.Ask("Password")
	return req
}

// PromptSignup reads the signup form.
func (p *Prompter) PromptSignup() service.SignupRequest {
	return service.SignupRequest{
		Role:     p.Ask("Role (doctor/patient)"),
		ID:       p.Ask("ID"),
		Name:     p.Ask("Name (leave empty to use the record)"),
		Password: p.Ask("Password"),
		Confirm:  p.Ask("Confirm password"),
	}
}

// PromptChangePassword reads the change-password form.
func (p *Prompter) PromptChangePassword() service.ChangePasswordRequest {
	return service.ChangePasswordRequest{
		Role:    p.Ask("Role (doctor/patient)"),
		ID:      p.Ask("ID"),
		Current: p.Ask("Current password"),
		New:     p.Ask("New password"),
		Confirm: p.Ask("Confirm new password"),
	}
}
