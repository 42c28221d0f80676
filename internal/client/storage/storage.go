// Package storage keeps the CLI's local state and reads its interactive
// prompts.
package storage

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
)

// DefaultFile is where the session is remembered when no path is given.
const DefaultFile = "rccdash-session.json"

// LocalStorage is the CLI's local state file.
type LocalStorage struct {
	Session *SessionRecord `json:"session,omitempty"`

	mu   sync.Mutex
	path string
}

// New returns storage backed by path, or DefaultFile when path is empty.
func New(path string) *LocalStorage {
	if path == "" {
		path = DefaultFile
	}
	return &LocalStorage{path: path}
}

// Load reads the state file. A missing file leaves the storage empty.
func (ls *LocalStorage) Load() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.Session = nil
	data, err := os.ReadFile(ls.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, ls)
}

// Save writes the state file.
func (ls *LocalStorage) Save() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	data, err := json.MarshalIndent(ls, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ls.path, data, 0o600)
}

// SetSession remembers rec.
func (ls *LocalStorage) SetSession(rec SessionRecord) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.Session = &rec
}

// ClearSession forgets the remembered session.
func (ls *LocalStorage) ClearSession() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.Session = nil
}

// CurrentSession returns the remembered session for baseURL.
func (ls *LocalStorage) CurrentSession(baseURL string) (SessionRecord, bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.Session == nil || ls.Session.BaseURL != baseURL {
		return SessionRecord{}, false
	}
	return *ls.Session, true
}
