// Package preference remembers the workspace a browser last used.
//
// The stored id is a hint: nothing here checks that it still names an
// accessible workspace. The workspace resolver validates it and writes the
// corrected value back.
package preference

import (
	"context"

	"go.uber.org/zap"
)

// WorkspaceKey is the single storage key owned by this package.
const WorkspaceKey = "onepager.preferred_workspace"

// Storage is the key/value capability a Store persists through.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Store reads and writes the preferred workspace through a Storage.
type Store struct {
	storage Storage
	log     *zap.Logger
}

// New returns a Store backed by storage. A nil storage behaves like
// NoopStorage.
func New(storage Storage, logger *zap.Logger) *Store {
	if storage == nil {
		storage = NoopStorage{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{storage: storage, log: logger}
}

// PreferredWorkspace returns the stored workspace id, or "" when none is set.
func (s *Store) PreferredWorkspace() string {
	if s == nil {
		return ""
	}
	v, ok := s.storage.Get(WorkspaceKey)
	if !ok {
		return ""
	}
	return v
}

// SetPreferredWorkspace overwrites the stored id. Failures are logged and
// otherwise ignored.
func (s *Store) SetPreferredWorkspace(id string) {
	if s == nil || id == "" {
		return
	}
	if err := s.storage.Set(WorkspaceKey, id); err != nil {
		s.log.Warn("preferred workspace not saved",
			zap.String("workspace_id", id),
			zap.Error(err))
	}
}

type ctxKey struct{}

// WithStore returns a context carrying s.
func WithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the Store carried by ctx, or a noop-backed Store when
// there is none (background jobs, server-side calls without a browser).
func FromContext(ctx context.Context) *Store {
	if s, ok := ctx.Value(ctxKey{}).(*Store); ok && s != nil {
		return s
	}
	return noopStore
}

var noopStore = New(NoopStorage{}, nil)
