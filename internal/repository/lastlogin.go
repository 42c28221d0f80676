package repository

import (
	"context"
	"sync"
	"time"

	"github.com/atinyakov/rccdash/internal/kvstore"
	"go.uber.org/zap"
)

// ISOTime is the timestamp layout used for stored times (JavaScript
// toISOString form).
const ISOTime = "2006-01-02T15:04:05.000Z07:00"

// FormatISO renders t in UTC using ISOTime.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOTime)
}

// LastLoginTable records the most recent successful login per identity key.
type LastLoginTable struct {
	mu      sync.Mutex
	p       persister
	entries map[string]string
}

// NewLastLoginTable loads the last-login namespace from store.
func NewLastLoginTable(ctx context.Context, store kvstore.Store, log *zap.Logger) *LastLoginTable {
	entries := map[string]string{}
	if !kvstore.LoadJSON(ctx, store, kvstore.KeyLastLogin, &entries) || entries == nil {
		entries = map[string]string{}
	}
	return &LastLoginTable{
		p:       newPersister(store, kvstore.KeyLastLogin, log),
		entries: entries,
	}
}

// Record overwrites the timestamp for key.
func (t *LastLoginTable) Record(ctx context.Context, key string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = FormatISO(at)
	t.p.save(ctx, t.entries)
}

// Get returns the stored timestamp for key.
func (t *LastLoginTable) Get(key string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[key]
	return v, ok
}
