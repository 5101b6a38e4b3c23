package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// TokenStore persists a client's session between visits.
type TokenStore interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, session Session) error
	Clear(ctx context.Context) error
}

// NewTokenStore returns a Redis-backed store keyed by device, or an
// in-process one when redisClient is nil.
func NewTokenStore(redisClient *redis.Client, deviceID string) TokenStore {
	if redisClient == nil {
		return &memoryTokens{}
	}
	return &redisTokens{redis: redisClient, key: "motorota:device:" + deviceID + ":session"}
}

type redisTokens struct {
	redis *redis.Client
	key   string
}

func (r *redisTokens) Load(ctx context.Context) (*Session, error) {
	raw, err := r.redis.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		_ = r.redis.Del(ctx, r.key).Err()
		return nil, nil
	}
	return &session, nil
}

func (r *redisTokens) Save(ctx context.Context, session Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := r.redis.Set(ctx, r.key, payload, refreshTokenTTL).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *redisTokens) Clear(ctx context.Context) error {
	if err := r.redis.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

type memoryTokens struct {
	mu      sync.Mutex
	session *Session
}

func (m *memoryTokens) Load(context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.clone(), nil
}

func (m *memoryTokens) Save(_ context.Context, session Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &session
	return nil
}

func (m *memoryTokens) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}
