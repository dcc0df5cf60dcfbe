package model

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const persistTimeout = 5 * time.Second

// Persistence is the optional durable backing for model snapshots.
// Implementations must replace a user's row atomically so a concurrent
// reader never observes a half-written model.
type Persistence interface {
	SaveUserModel(ctx context.Context, m *UserModel) error
	LoadUserModel(ctx context.Context, userID string) (*UserModel, error)
}

// Store holds the current model snapshot per user.
//
// Snapshots are published copy-on-write: Replace installs a fully-built
// *UserModel under the lock in a single pointer assignment, so readers see
// either the whole old snapshot or the whole new one, never a mix. Readers
// must treat returned models as immutable.
type Store struct {
	mu      sync.RWMutex
	models  map[string]*UserModel
	persist Persistence // nil when running without a database
}

// NewStore creates a model store. persist may be nil for in-memory use.
func NewStore(persist Persistence) *Store {
	return &Store{
		models:  make(map[string]*UserModel),
		persist: persist,
	}
}

// Get returns the current snapshot for the user.
//
// A user with no snapshot gets a lazily-created default model. If a
// persistence layer is configured, the last saved snapshot is loaded first;
// a load failure degrades to the default model with a warning rather than
// surfacing an error to adaptation callers.
func (s *Store) Get(userID string) *UserModel {
	s.mu.RLock()
	m, ok := s.models[userID]
	s.mu.RUnlock()
	if ok {
		return m
	}

	var loaded *UserModel
	if s.persist != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		var err error
		loaded, err = s.persist.LoadUserModel(ctx, userID)
		if err != nil {
			log.WithField("user", userID).Warnf("Model load failed, using default model: %v", err)
		}
	}
	if loaded == nil {
		loaded = DefaultModel(userID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another caller may have populated the entry while we were loading.
	if m, ok := s.models[userID]; ok {
		return m
	}
	s.models[userID] = loaded
	return loaded
}

// Replace atomically installs a new snapshot for the user and persists it
// when a persistence layer is configured. Persistence failures are soft:
// the in-memory snapshot is still replaced and the error is logged.
func (s *Store) Replace(m *UserModel) {
	if m == nil {
		return
	}

	s.mu.Lock()
	s.models[m.UserID] = m
	s.mu.Unlock()

	if s.persist != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := s.persist.SaveUserModel(ctx, m); err != nil {
			log.WithField("user", m.UserID).Warnf("Model persist failed: %v", err)
		}
	}
}

// Reset drops the in-memory snapshot for a user, forcing the next Get to
// reload from persistence or fall back to the default model.
func (s *Store) Reset(userID string) {
	s.mu.Lock()
	delete(s.models, userID)
	s.mu.Unlock()
}
