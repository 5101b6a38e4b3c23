package vehicle

import (
	"context"
	"log"
	"sync"

	"backend-motorota/internal/apperr"
)

// Store caches the vehicle of the current owner.
//
// Every owner change and every successful write bumps the generation. A
// background fetch only lands if the generation it started with is still
// current, so a slow fetch for a previous owner is dropped.
type Store struct {
	repo Repository

	mu         sync.Mutex
	owner      string
	current    *Profile
	generation uint64
	inFlight   int
	listeners  map[uint64]func(*Profile)
	nextID     uint64

	fetches sync.WaitGroup
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo, listeners: map[uint64]func(*Profile){}}
}

// SetOwner follows the signed-in user. An unchanged owner is ignored.
func (s *Store) SetOwner(ownerID string) {
	s.mu.Lock()
	if ownerID == s.owner {
		s.mu.Unlock()
		return
	}
	s.owner = ownerID
	s.generation++
	gen := s.generation
	hadVehicle := s.current != nil
	s.current = nil

	if ownerID == "" {
		s.mu.Unlock()
		if hadVehicle {
			s.emit(nil)
		}
		return
	}
	s.inFlight++
	s.fetches.Add(1)
	s.mu.Unlock()

	if hadVehicle {
		s.emit(nil)
	}
	go s.fetch(gen, ownerID)
}

func (s *Store) fetch(gen uint64, ownerID string) {
	defer s.fetches.Done()

	p, err := s.repo.FindByOwner(context.Background(), ownerID)
	if err != nil {
		log.Printf("vehicle fetch for %s failed: %v", ownerID, err)
		p = nil
	}

	s.mu.Lock()
	s.inFlight--
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.current = p.clone()
	s.mu.Unlock()

	s.emit(p)
}

// Save upserts p for the current owner. Without an owner it does nothing;
// while another operation is in flight it fails with a conflict.
func (s *Store) Save(ctx context.Context, p Profile) error {
	ownerID := s.Owner()
	if ownerID == "" {
		return nil
	}
	if err := p.Validate(); err != nil {
		return err
	}

	if !s.tryBegin() {
		return errBusy()
	}
	defer s.end()
	if err := s.repo.Upsert(ctx, ownerID, p); err != nil {
		return apperr.Persistence("could not save vehicle profile", err)
	}

	if s.apply(ownerID, &p) {
		s.emit(&p)
	}
	return nil
}

// Clear deletes the current owner's vehicle. The cache is only dropped once
// the delete succeeded.
func (s *Store) Clear(ctx context.Context) error {
	ownerID := s.Owner()
	if ownerID == "" {
		return nil
	}

	if !s.tryBegin() {
		return errBusy()
	}
	defer s.end()
	if err := s.repo.Delete(ctx, ownerID); err != nil {
		return apperr.Persistence("could not remove vehicle profile", err)
	}

	if s.apply(ownerID, nil) {
		s.emit(nil)
	}
	return nil
}

func (s *Store) Current() *Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone()
}

func (s *Store) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Loading reports whether a fetch, save or clear is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}

// Wait blocks until background fetches have finished.
func (s *Store) Wait() {
	s.fetches.Wait()
}

// OnChange registers fn for every cache change and returns a func removing it.
func (s *Store) OnChange(fn func(*Profile)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// tryBegin reserves the store for one write. It fails while a fetch, save
// or clear is in flight.
func (s *Store) tryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight > 0 {
		return false
	}
	s.inFlight++
	return true
}

func errBusy() error {
	return apperr.Conflict("vehicle profile is busy", nil)
}

func (s *Store) end() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
}

// apply stores p if ownerID is still current and supersedes pending fetches.
func (s *Store) apply(ownerID string, p *Profile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner != ownerID {
		return false
	}
	s.generation++
	s.current = p.clone()
	return true
}

func (s *Store) emit(p *Profile) {
	s.mu.Lock()
	listeners := make([]func(*Profile), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(p.clone())
	}
}
