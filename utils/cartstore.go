package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cartpix/cartpix/models"
)

// CartStore persists session carts across requests. Get on an unknown session
// returns a fresh empty cart, never an error.
type CartStore interface {
	Get(sessionID string) (*models.Cart, error)
	Put(cart *models.Cart) error
	Delete(sessionID string) error
}

const cartKeyPrefix = "cart:sess:"

type cartEntry struct {
	data      []byte
	expiresAt time.Time
}

// SessionCartStore keeps carts in Redis with an in-memory fallback for
// single-instance deployments and tests. Carts round-trip through JSON
// unchanged, attachment records included.
type SessionCartStore struct {
	rdb *redis.Client // nil means memory only
	ttl time.Duration

	mu  sync.Mutex
	mem map[string]cartEntry
}

// NewSessionCartStore builds a store over the given client; pass nil to stay
// purely in memory.
func NewSessionCartStore(rdb *redis.Client, ttl time.Duration) *SessionCartStore {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &SessionCartStore{rdb: rdb, ttl: ttl, mem: map[string]cartEntry{}}
}

// Get restores the session's cart. The restore is a pure pass-through: no
// re-validation of attachment records happens here.
func (s *SessionCartStore) Get(sessionID string) (*models.Cart, error) {
	if s.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		b, err := s.rdb.Get(ctx, cartKeyPrefix+sessionID).Bytes()
		switch {
		case err == redis.Nil:
			return emptyCart(sessionID), nil
		case err != nil:
			if Sugar != nil {
				Sugar.Warnf("cart store: redis get failed, using memory fallback: %v", err)
			}
		default:
			return decodeCart(sessionID, b)
		}
	}

	s.mu.Lock()
	entry, ok := s.mem[sessionID]
	s.mu.Unlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return emptyCart(sessionID), nil
	}
	return decodeCart(sessionID, entry.data)
}

// Put persists the cart under its session key with the store TTL.
func (s *SessionCartStore) Put(cart *models.Cart) error {
	cart.UpdatedAt = time.Now()
	b, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("cart store: encode: %w", err)
	}

	if s.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.rdb.Set(ctx, cartKeyPrefix+cart.SessionID, b, s.ttl).Err(); err == nil {
			return nil
		} else if Sugar != nil {
			Sugar.Warnf("cart store: redis set failed, using memory fallback: %v", err)
		}
	}

	s.mu.Lock()
	s.mem[cart.SessionID] = cartEntry{data: b, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

// Delete drops the session's cart.
func (s *SessionCartStore) Delete(sessionID string) error {
	if s.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.rdb.Del(ctx, cartKeyPrefix+sessionID).Err(); err != nil && Sugar != nil {
			Sugar.Warnf("cart store: redis del failed: %v", err)
		}
	}
	s.mu.Lock()
	delete(s.mem, sessionID)
	s.mu.Unlock()
	return nil
}

func emptyCart(sessionID string) *models.Cart {
	now := time.Now()
	return &models.Cart{SessionID: sessionID, CreatedAt: now, UpdatedAt: now}
}

func decodeCart(sessionID string, b []byte) (*models.Cart, error) {
	var cart models.Cart
	if err := json.Unmarshal(b, &cart); err != nil {
		return nil, fmt.Errorf("cart store: decode session %s: %w", sessionID, err)
	}
	return &cart, nil
}
