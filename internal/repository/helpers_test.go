package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atinyakov/rccdash/internal/clock"
	"github.com/atinyakov/rccdash/internal/kvstore"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testStart = time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)

func newFakeClock() *clock.Fake { return clock.NewFake(testStart) }

// brokenStore reads from an inner store but refuses every write.
type brokenStore struct {
	kvstore.Store
	writes int
}

func (b *brokenStore) Set(context.Context, string, []byte) error {
	b.writes++
	return errors.New("quota exceeded")
}

// countingStore counts writes per key.
type countingStore struct {
	*kvstore.MemoryStore
	writes map[string]int
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: kvstore.NewMemoryStore(), writes: map[string]int{}}
}

func (c *countingStore) Set(ctx context.Context, key string, value []byte) error {
	c.writes[key]++
	return c.MemoryStore.Set(ctx, key, value)
}

func observedLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	return zap.New(core), logs
}
