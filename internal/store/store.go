// Package store implements the client-side cache and CRUD orchestration that
// every profile resource (allergies, diseases, vital signs, contacts, ...)
// shares. One generic Store replaces the per-entity copies the product grew
// over time: an entity package supplies its endpoint, identity accessor,
// display order and delete strategy, and gets the full contract back.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/rest"
)

var ErrInvalidUUID = errors.New("invalid uuid")

// Backend is the slice of the REST client a store needs. Satisfied by
// *rest.Client; mocked in tests.
type Backend interface {
	Get(ctx context.Context, path string, out interface{}) error
	Post(ctx context.Context, path string, body, out interface{}) error
	Put(ctx context.Context, path string, body, out interface{}) error
	Delete(ctx context.Context, path string) error
}

// Ensure the real REST client satisfies Backend.
var _ Backend = (*rest.Client)(nil)

// DeleteStrategy selects when a deleted item leaves the local cache.
type DeleteStrategy int

const (
	// Pessimistic removes the item only after the server confirms.
	Pessimistic DeleteStrategy = iota
	// Optimistic removes the item immediately and rolls the removal back
	// if the server call fails.
	Optimistic
)

// Config describes one entity collection.
type Config[T any] struct {
	// EndpointBase is the collection path, e.g. "/allergies". Reads and
	// creates go to EndpointBase+"/", item operations to EndpointBase+"/{uuid}".
	EndpointBase string
	// UUIDOf extracts the server-assigned identity used as the sole cache key.
	UUIDOf func(T) string
	// Less, when set, is the display order re-applied after every mutation.
	Less func(a, b T) bool
	// DeleteStrategy for this collection.
	DeleteStrategy DeleteStrategy
}

// State is a point-in-time snapshot of a store.
type State[T any] struct {
	Items   []T
	Loading bool
	Err     error
}

// Store caches one entity collection and orchestrates its CRUD calls. It is
// the single writer for the collection; consumers read snapshots and dispatch
// mutations, never touching the slice directly.
type Store[T any] struct {
	cfg     Config[T]
	backend Backend
	logger  zerolog.Logger

	mu       sync.Mutex
	items    []T
	loading  bool
	err      error
	deleting map[string]bool
	subs     map[int]func()
	nextSub  int
}

// New creates a Store for one entity collection.
func New[T any](cfg Config[T], backend Backend, logger zerolog.Logger) *Store[T] {
	if cfg.UUIDOf == nil {
		panic("store: Config.UUIDOf is required")
	}
	return &Store[T]{
		cfg:      cfg,
		backend:  backend,
		logger:   logger.With().Str("collection", cfg.EndpointBase).Logger(),
		deleting: make(map[string]bool),
		subs:     make(map[int]func()),
	}
}

// Subscribe registers fn to run after every state change. The returned
// function unsubscribes.
func (s *Store[T]) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Snapshot returns a copy of the current state. The Items slice is owned by
// the caller.
func (s *Store[T]) Snapshot() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]T, len(s.items))
	copy(items, s.items)
	return State[T]{Items: items, Loading: s.loading, Err: s.err}
}

// Items returns a copy of the cached collection.
func (s *Store[T]) Items() []T {
	return s.Snapshot().Items
}

// FetchAll loads the full collection, replacing the cache wholesale. Safe to
// trigger from multiple mount points: a call while a fetch is already in
// flight is skipped. Fetch failures land in the store's Err state for
// passive display; they are not returned.
func (s *Store[T]) FetchAll(ctx context.Context) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.err = nil
	s.mu.Unlock()
	s.notify()

	var fetched []T
	err := s.backend.Get(ctx, s.cfg.EndpointBase+"/", &fetched)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = err
		s.logger.Error().Err(err).Msg("failed to fetch collection")
	} else {
		s.items = fetched
		s.sortLocked()
	}
	s.mu.Unlock()
	s.notify()
}

// Create posts payload and appends the server's authoritative result,
// including its assigned uuid. On failure the cache is untouched and the
// error is returned to the calling form; the store's list-level Err state is
// never involved.
func (s *Store[T]) Create(ctx context.Context, payload interface{}) (T, error) {
	var created T
	if err := s.backend.Post(ctx, s.cfg.EndpointBase+"/", payload, &created); err != nil {
		return created, err
	}

	s.mu.Lock()
	s.items = append(s.items, created)
	s.sortLocked()
	s.mu.Unlock()
	s.notify()
	return created, nil
}

// Update puts a partial payload for id and replaces the matching cached item
// with the server response. A local miss is a no-op on the list: the server
// result is still authoritative and the stale cache reconciles on the next
// fetch.
func (s *Store[T]) Update(ctx context.Context, id string, payload interface{}) (T, error) {
	var updated T
	if err := uuid.Validate(id); err != nil {
		return updated, fmt.Errorf("%w: %s", ErrInvalidUUID, id)
	}
	if err := s.backend.Put(ctx, s.cfg.EndpointBase+"/"+id, payload, &updated); err != nil {
		return updated, err
	}

	s.mu.Lock()
	for i := range s.items {
		if s.cfg.UUIDOf(s.items[i]) == id {
			s.items[i] = updated
			break
		}
	}
	s.sortLocked()
	s.mu.Unlock()
	s.notify()
	return updated, nil
}

// SubCreate posts a nested payload under the item with id (for example a
// reaction added to an allergy). The backend returns the full updated parent,
// which replaces the cached item the same way Update does.
func (s *Store[T]) SubCreate(ctx context.Context, id, subPath string, payload interface{}) (T, error) {
	var updated T
	if err := uuid.Validate(id); err != nil {
		return updated, fmt.Errorf("%w: %s", ErrInvalidUUID, id)
	}
	if err := s.backend.Post(ctx, s.cfg.EndpointBase+"/"+id+"/"+subPath, payload, &updated); err != nil {
		return updated, err
	}

	s.mu.Lock()
	for i := range s.items {
		if s.cfg.UUIDOf(s.items[i]) == id {
			s.items[i] = updated
			break
		}
	}
	s.sortLocked()
	s.mu.Unlock()
	s.notify()
	return updated, nil
}

// Delete removes the item with id according to the configured strategy. A
// second Delete for the same id while the first is still in flight is a
// no-op, so rapid duplicate clicks never double-remove or error. A 404 from
// the server means the item was already gone; the local removal stands.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	if err := uuid.Validate(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidUUID, id)
	}

	s.mu.Lock()
	if s.deleting[id] {
		s.mu.Unlock()
		return nil
	}
	s.deleting[id] = true

	var removed T
	var removedAt = -1
	if s.cfg.DeleteStrategy == Optimistic {
		for i := range s.items {
			if s.cfg.UUIDOf(s.items[i]) == id {
				removed = s.items[i]
				removedAt = i
				s.items = append(s.items[:i], s.items[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	if removedAt >= 0 {
		s.notify()
	}

	err := s.backend.Delete(ctx, s.cfg.EndpointBase+"/"+id)

	confirmed := err == nil || isNotFound(err)

	s.mu.Lock()
	delete(s.deleting, id)
	if confirmed {
		if s.cfg.DeleteStrategy == Pessimistic {
			s.removeLocked(id)
		}
	} else if s.cfg.DeleteStrategy == Optimistic && removedAt >= 0 {
		// rollback
		s.items = append(s.items, removed)
		s.sortLocked()
	}
	s.mu.Unlock()
	s.notify()

	if confirmed {
		return nil
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, rest.ErrNotFound)
}

func (s *Store[T]) removeLocked(id string) {
	for i := range s.items {
		if s.cfg.UUIDOf(s.items[i]) == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

func (s *Store[T]) sortLocked() {
	if s.cfg.Less == nil {
		return
	}
	sort.SliceStable(s.items, func(i, j int) bool {
		return s.cfg.Less(s.items[i], s.items[j])
	})
}

func (s *Store[T]) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
