package repository

import (
	"context"
	"sync"
	"time"

	"github.com/atinyakov/rccdash/internal/clock"
	"github.com/atinyakov/rccdash/internal/kvstore"
	"github.com/atinyakov/rccdash/internal/models"
	"go.uber.org/zap"
)

const (
	// MaxFailedAttempts is the failure count that triggers a lock.
	MaxFailedAttempts = 3
	// LockoutDuration is how long a lock lasts.
	LockoutDuration = 60 * time.Second
)

// LoginAttemptLedger tracks failed logins and temporary lockouts.
type LoginAttemptLedger struct {
	mu      sync.Mutex
	p       persister
	clock   clock.Clock
	records map[string]*models.LoginAttemptRecord
}

// NewLoginAttemptLedger loads the login-attempts namespace from store.
func NewLoginAttemptLedger(ctx context.Context, store kvstore.Store, clk clock.Clock, log *zap.Logger) *LoginAttemptLedger {
	records := map[string]*models.LoginAttemptRecord{}
	if !kvstore.LoadJSON(ctx, store, kvstore.KeyLoginAttempts, &records) || records == nil {
		records = map[string]*models.LoginAttemptRecord{}
	}
	return &LoginAttemptLedger{
		p:       newPersister(store, kvstore.KeyLoginAttempts, log),
		clock:   clk,
		records: records,
	}
}

// IsLockedOut reports whether the identity is inside a lock window. An
// expired lock is cleared and the counter reset on this read.
func (l *LoginAttemptLedger) IsLockedOut(ctx context.Context, role models.Role, id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.records[models.IdentityKey(role, id)]
	if rec == nil || rec.LockUntil == nil {
		return false
	}
	if l.clock.Now().UnixMilli() < *rec.LockUntil {
		return true
	}
	rec.LockUntil = nil
	rec.Count = 0
	l.p.save(ctx, l.records)
	return false
}

// RecordFailure increments the failure counter and locks the identity once
// it reaches MaxFailedAttempts.
func (l *LoginAttemptLedger) RecordFailure(ctx context.Context, role models.Role, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := models.IdentityKey(role, id)
	rec := l.records[key]
	if rec == nil {
		rec = &models.LoginAttemptRecord{}
		l.records[key] = rec
	}
	rec.Count++
	if rec.Count >= MaxFailedAttempts {
		until := l.clock.Now().Add(LockoutDuration).UnixMilli()
		rec.LockUntil = &until
	}
	l.p.save(ctx, l.records)
}

// Clear removes the identity's record. Nothing is written when there was none.
func (l *LoginAttemptLedger) Clear(ctx context.Context, role models.Role, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := models.IdentityKey(role, id)
	if _, ok := l.records[key]; !ok {
		return
	}
	delete(l.records, key)
	l.p.save(ctx, l.records)
}

// Record returns a copy of the identity's record.
func (l *LoginAttemptLedger) Record(role models.Role, id string) (models.LoginAttemptRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := l.records[models.IdentityKey(role, id)]
	if rec == nil {
		return models.LoginAttemptRecord{}, false
	}
	out := *rec
	if rec.LockUntil != nil {
		v := *rec.LockUntil
		out.LockUntil = &v
	}
	return out, true
}
