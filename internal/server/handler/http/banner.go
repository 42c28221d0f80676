package http

import (
	"sync"

	"github.com/atinyakov/rccdash/internal/session"
)

// Banner keeps the message of the last session end, such as the idle
// expiry notice, until the next login.
type Banner struct {
	mu      sync.Mutex
	message string
}

// SessionStarted clears the banner.
func (b *Banner) SessionStarted(session.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.message = ""
}

// SessionEnded shows reason; an empty reason clears the banner.
func (b *Banner) SessionEnded(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.message = reason
}

// Message returns the current banner text.
func (b *Banner) Message() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.message
}
