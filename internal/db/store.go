package db

import (
	"context"
	"database/sql"
	"sync"

	"github.com/hpungsan/modman/internal/mod"
)

// Store serializes every tracking operation behind one mutex. It is the only
// shared mutable resource of the core, so concurrent sessions go through it.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// NewStore wraps an initialized database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func (s *Store) GetTrackedMods(ctx context.Context) ([]mod.TrackedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return GetTrackedMods(ctx, s.db)
}

func (s *Store) AddTrackedMod(ctx context.Context, rec *mod.TrackedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AddTrackedMod(ctx, s.db, rec)
}

func (s *Store) RemoveTrackedMod(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RemoveTrackedMod(ctx, s.db, name)
}

func (s *Store) GetDependents(ctx context.Context, name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return GetDependents(ctx, s.db, name)
}

func (s *Store) GetModDetails(ctx context.Context, name string) (*mod.TrackedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return GetModDetails(ctx, s.db, name)
}

func (s *Store) DependencyEdges(ctx context.Context) ([]Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DependencyEdges(ctx, s.db)
}
