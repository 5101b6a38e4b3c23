package identity

import (
	"context"
	"errors"
	"log"
	"sync"
)

// Authenticator is the slice of Service a Client needs.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (User, error)
	Login(ctx context.Context, email, password string) (Session, error)
	Verify(ctx context.Context, token string) (*Claims, error)
	Refresh(ctx context.Context, refreshToken string) (Session, error)
	Revoke(ctx context.Context, session Session) error
}

// Client is one device's view of the identity service. It holds at most one
// Session, persists it through a TokenStore and tells listeners about every
// change.
type Client struct {
	auth   Authenticator
	tokens TokenStore

	mu           sync.Mutex
	current      *Session
	restored     bool
	listeners    map[uint64]Listener
	nextListener uint64
}

func NewClient(auth Authenticator, tokens TokenStore) *Client {
	return &Client{
		auth:      auth,
		tokens:    tokens,
		listeners: map[uint64]Listener{},
	}
}

func (c *Client) SignUp(ctx context.Context, email, password string) (User, error) {
	return c.auth.Register(ctx, email, password)
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	session, err := c.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.current = &session
	c.restored = true
	c.mu.Unlock()

	c.persist(ctx, session)
	c.emit(EventSignedIn, &session)
	return session.clone(), nil
}

// SignOut drops the local session first, then revokes it upstream. The
// returned error only reports the upstream half; locally the client is
// always signed out afterwards.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	previous := c.current
	c.current = nil
	c.restored = true
	c.mu.Unlock()

	clearErr := c.tokens.Clear(ctx)
	if previous == nil {
		return clearErr
	}

	revokeErr := c.auth.Revoke(ctx, *previous)
	c.emit(EventSignedOut, nil)
	return errors.Join(revokeErr, clearErr)
}

// GetSession returns the current valid session, restoring a persisted one on
// first use. Expired access tokens are refreshed; a session that can no
// longer be refreshed is destroyed and nil is returned.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	cur, fromStore, err := c.currentOrStored(ctx)
	if err != nil || cur == nil {
		return nil, err
	}
	expected := cur
	if fromStore {
		expected = nil
	}

	if _, err := c.auth.Verify(ctx, cur.AccessToken); err == nil {
		if !fromStore {
			return cur.clone(), nil
		}
		got, _ := c.adopt(nil, cur)
		return got.clone(), nil
	}

	refreshed, err := c.auth.Refresh(ctx, cur.RefreshToken)
	if err != nil {
		log.Printf("session refresh failed for %s: %v", cur.User.ID, err)
		if got, ok := c.adopt(expected, nil); !ok {
			return got.clone(), nil
		}
		_ = c.tokens.Clear(ctx)
		if !fromStore {
			c.emit(EventSignedOut, nil)
		}
		return nil, nil
	}

	got, ok := c.adopt(expected, &refreshed)
	if !ok {
		return got.clone(), nil
	}
	c.persist(ctx, refreshed)
	c.emit(EventTokenRefreshed, &refreshed)
	return refreshed.clone(), nil
}

func (c *Client) GetCurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	user := c.current.User
	return &user
}

// OnSessionChange registers l and returns a func that removes it.
func (c *Client) OnSessionChange(l Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = l
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Client) currentOrStored(ctx context.Context) (*Session, bool, error) {
	c.mu.Lock()
	cur := c.current.clone()
	restored := c.restored
	c.mu.Unlock()
	if cur != nil || restored {
		return cur, false, nil
	}

	stored, err := c.tokens.Load(ctx)
	c.mu.Lock()
	c.restored = true
	c.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return stored, stored != nil, nil
}

// adopt swaps the current session for next only while it still equals
// expected (by access token). Otherwise the newer session wins and is returned.
func (c *Client) adopt(expected, next *Session) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !sameSession(c.current, expected) {
		return c.current.clone(), false
	}
	c.current = next.clone()
	return next.clone(), true
}

func sameSession(a, b *Session) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.AccessToken == b.AccessToken
}

func (c *Client) persist(ctx context.Context, session Session) {
	if err := c.tokens.Save(ctx, session); err != nil {
		log.Printf("persist session for %s: %v", session.User.ID, err)
	}
}

func (c *Client) emit(event Event, session *Session) {
	c.mu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(event, session.clone())
	}
}
