// Package carryover keeps small form values alive for one browser session.
package carryover

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store holds one Redis hash per browser session. Each write pushes the
// hash's expiry out by ttl. With a nil client values live in process memory.
type Store struct {
	redis *redis.Client
	ttl   time.Duration

	mu  sync.Mutex
	mem map[string]map[string]string
}

func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	return &Store{redis: redisClient, ttl: ttl, mem: map[string]map[string]string{}}
}

func key(sessionID string) string {
	return "motorota:carryover:" + sessionID
}

// Get returns "" for keys never written in this session.
func (s *Store) Get(ctx context.Context, sessionID, field string) (string, error) {
	if s.redis == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.mem[sessionID][field], nil
	}
	val, err := s.redis.HGet(ctx, key(sessionID), field).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read carry-over %s: %w", field, err)
	}
	return val, nil
}

func (s *Store) Set(ctx context.Context, sessionID, field, value string) error {
	if s.redis == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.mem[sessionID] == nil {
			s.mem[sessionID] = map[string]string{}
		}
		s.mem[sessionID][field] = value
		return nil
	}
	k := key(sessionID)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, field, value)
		pipe.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write carry-over %s: %w", field, err)
	}
	return nil
}

// Bucket scopes the store to one browser session.
func (s *Store) Bucket(sessionID string) Bucket {
	return Bucket{store: s, sessionID: sessionID}
}

type Bucket struct {
	store     *Store
	sessionID string
}

func (b Bucket) Get(ctx context.Context, field string) (string, error) {
	return b.store.Get(ctx, b.sessionID, field)
}

func (b Bucket) Set(ctx context.Context, field, value string) error {
	return b.store.Set(ctx, b.sessionID, field, value)
}
