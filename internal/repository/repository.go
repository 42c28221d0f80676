// Package repository keeps the in-memory working copies of every persisted
// namespace. Each mutation re-serializes the whole working copy to the
// key-value store; a failed write is logged and the in-memory state is kept.
package repository

import (
	"context"

	"github.com/atinyakov/rccdash/internal/kvstore"
	"go.uber.org/zap"
)

// persister writes a working copy back to its namespace.
type persister struct {
	store kvstore.Store
	key   string
	log   *zap.Logger
}

func newPersister(store kvstore.Store, key string, log *zap.Logger) persister {
	if log == nil {
		log = zap.NewNop()
	}
	return persister{store: store, key: key, log: log}
}

// save reports whether the write succeeded.
func (p persister) save(ctx context.Context, v any) bool {
	if err := kvstore.SaveJSON(ctx, p.store, p.key, v); err != nil {
		p.log.Warn("failed to persist working copy", zap.String("key", p.key), zap.Error(err))
		return false
	}
	return true
}
