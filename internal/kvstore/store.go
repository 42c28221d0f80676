// Package kvstore provides the durable string-keyed blob store that holds
// every persisted namespace of the dashboard.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Namespace keys. They are part of the stored-data compatibility surface.
const (
	KeyCredentials   = "rccCredentials"
	KeyMeetings      = "rccMeetings"
	KeyNotifications = "rccNotifications"
	KeyLoginAttempts = "rccLoginAttempts"
	KeyLastLogin     = "rccLastLogin"
)

// ErrStorage wraps every failed write.
var ErrStorage = errors.New("storage error")

// Store is a durable key-value store of JSON blobs.
type Store interface {
	// Get returns the value under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
}

// LoadJSON decodes the value under key into dst. It reports false, leaving
// dst for the caller to default, when the key is absent, unreadable or does
// not parse.
func LoadJSON(ctx context.Context, s Store, key string, dst any) bool {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok || len(raw) == 0 {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false
	}
	return string(raw) != "null"
}

// SaveJSON serializes v in full and stores it under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrStorage, key, err)
	}
	if err := s.Set(ctx, key, b); err != nil {
		return fmt.Errorf("%w: save %s: %v", ErrStorage, key, err)
	}
	return nil
}
