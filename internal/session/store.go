package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"backend-motorota/internal/apperr"
	"backend-motorota/internal/identity"
	"backend-motorota/internal/profile"
	"backend-motorota/internal/validation"
)

// Identity is the identity service as seen by one client.
type Identity interface {
	SignUp(ctx context.Context, email, password string) (identity.User, error)
	SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error)
	SignOut(ctx context.Context) error
	GetSession(ctx context.Context) (*identity.Session, error)
	OnSessionChange(l identity.Listener) func()
}

type Profiles interface {
	FindByID(ctx context.Context, id string) (*profile.UserProfile, error)
	Ensure(ctx context.Context, id, email string) error
}

// State is the value published by the Store. Profile is nil for anonymous
// clients and for signed-in users whose profile row is missing.
type State struct {
	Loading bool
	Session *identity.Session
	Profile *profile.UserProfile
}

func (s State) SignedIn() bool { return s.Session != nil }

// OwnerID is the identifier every per-user record is keyed by, or "".
func (s State) OwnerID() string {
	if s.Profile == nil {
		return ""
	}
	return s.Profile.ID
}

type SignUpRequest struct {
	Email           string  `json:"email" validate:"required"`
	Password        string  `json:"password" validate:"required,min=6"`
	ConfirmPassword *string `json:"confirm_password,omitempty"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func blankToEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

func (r SignUpRequest) validate() error {
	normalized := r
	normalized.Email = strings.TrimSpace(r.Email)
	normalized.Password = blankToEmpty(r.Password)
	if err := validation.Struct(normalized); err != nil {
		return err
	}
	if r.ConfirmPassword != nil && *r.ConfirmPassword != r.Password {
		return apperr.Validation("passwords do not match")
	}
	return nil
}

func (r SignInRequest) validate() error {
	return validation.Struct(SignInRequest{
		Email:    strings.TrimSpace(r.Email),
		Password: blankToEmpty(r.Password),
	})
}

// Store is the single source of truth for who is signed in on one client.
//
// Two paths feed it: the identity listener and a one-shot GetSession query
// issued on creation. Every resolution takes a ticket. While loading, the
// first path to finish publishes; after that only the newest ticket may
// replace the state, so a slow, older resolution never overwrites a newer
// one. Loading is cleared by the first published resolution and never set
// again.
type Store struct {
	identity Identity
	profiles Profiles

	mu          sync.Mutex
	state       State
	ticket      uint64
	subscribers map[uint64]func(State)
	nextSub     uint64

	notifyMu    sync.Mutex
	ready       chan struct{}
	readyOnce   sync.Once
	unsubscribe func()
}

// NewStore builds a Store that stays Loading until Start is called.
func NewStore(id Identity, profiles Profiles) *Store {
	return &Store{
		identity:    id,
		profiles:    profiles,
		state:       State{Loading: true},
		subscribers: map[uint64]func(State){},
		ready:       make(chan struct{}),
	}
}

// New builds and starts a Store.
func New(ctx context.Context, id Identity, profiles Profiles) *Store {
	s := NewStore(id, profiles)
	s.Start(ctx)
	return s
}

// Start registers the identity listener and runs the initial session query
// in the background. ctx must outlive the request that created the store.
func (s *Store) Start(ctx context.Context) {
	unsubscribe := s.identity.OnSessionChange(s.onSessionChange)
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
	go s.loadInitial(ctx)
}

func (s *Store) loadInitial(ctx context.Context) {
	ticket := s.nextTicket()
	sess, err := s.identity.GetSession(ctx)
	if err != nil {
		log.Printf("initial session lookup failed: %v", err)
		sess = nil
	}
	s.resolve(ctx, ticket, sess)
}

func (s *Store) onSessionChange(_ identity.Event, sess *identity.Session) {
	if s.alreadyApplied(sess) {
		return
	}
	s.resolve(context.Background(), s.nextTicket(), sess)
}

func (s *Store) SignUp(ctx context.Context, req SignUpRequest) error {
	if err := req.validate(); err != nil {
		return err
	}
	email := strings.TrimSpace(req.Email)

	user, err := s.identity.SignUp(ctx, email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrAlreadyRegistered) || strings.Contains(err.Error(), "already registered") {
			return apperr.Conflict("email already in use", err)
		}
		return apperr.External(err)
	}

	if err := s.profiles.Ensure(ctx, user.ID, user.Email); err != nil {
		return apperr.External(err)
	}

	return s.SignIn(ctx, SignInRequest{Email: email, Password: req.Password})
}

// SignIn returns once the new session and its profile are published.
func (s *Store) SignIn(ctx context.Context, req SignInRequest) error {
	if err := req.validate(); err != nil {
		return err
	}

	sess, err := s.identity.SignInWithPassword(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) || strings.Contains(strings.ToLower(err.Error()), "invalid") {
			return apperr.Authentication("invalid email or password", err)
		}
		return apperr.External(err)
	}

	if !s.alreadyApplied(sess) {
		s.resolve(ctx, s.nextTicket(), sess)
	}
	return nil
}

// SignOut always leaves the store anonymous. Upstream failures are logged.
func (s *Store) SignOut(ctx context.Context) error {
	if err := s.identity.SignOut(ctx); err != nil {
		log.Printf("upstream sign out failed: %v", err)
	}
	s.resolve(ctx, s.nextTicket(), nil)
	return nil
}

func (s *Store) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready is closed once the first resolution has been published.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Subscribe calls fn after every published change and returns a func that
// removes it. Calls are serialized and always carry the latest state.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Close detaches the store from the identity listener.
func (s *Store) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Store) nextTicket() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticket++
	return s.ticket
}

func (s *Store) alreadyApplied(sess *identity.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Loading {
		return false
	}
	cur := s.state.Session
	if cur == nil || sess == nil {
		return cur == nil && sess == nil
	}
	return cur.AccessToken == sess.AccessToken
}

func (s *Store) resolve(ctx context.Context, ticket uint64, sess *identity.Session) {
	var p *profile.UserProfile
	if sess != nil {
		p = s.lookupProfile(ctx, sess.User.ID)
	}

	s.mu.Lock()
	if ticket != s.ticket && !s.state.Loading {
		s.mu.Unlock()
		return
	}
	s.state = State{Session: sess, Profile: p}
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) })
	s.notify()
}

func (s *Store) lookupProfile(ctx context.Context, userID string) *profile.UserProfile {
	p, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		log.Printf("profile lookup failed for %s: %v", userID, err)
		return nil
	}
	return p
}

func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	state := s.state
	subscribers := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(state)
	}
}
