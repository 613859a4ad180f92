// internal/service/cache.go
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dangerclosesec/huddle/internal/cache"
	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/google/uuid"
)

const ticketPrefix = "ticket:"

// CacheService stores JSON values in a cache.Store and issues the single-use
// tickets that authenticate websocket upgrades.
type CacheService struct {
	store     cache.Store
	ticketTTL time.Duration
}

func NewCacheService(store cache.Store, ticketTTL time.Duration) *CacheService {
	return &CacheService{store: store, ticketTTL: ticketTTL}
}

// Set stores a value in the cache
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return domain.BadRequestf("cache key is required")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling cache value: %w", err)
	}
	return s.store.Set(ctx, key, data, ttl)
}

// Get retrieves a value from the cache into result
func (s *CacheService) Get(ctx context.Context, key string, result interface{}) error {
	if key == "" {
		return domain.BadRequestf("cache key is required")
	}
	data, found, err := s.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("reading cache: %w", err)
	}
	if !found {
		return domain.ErrNotFound
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("unmarshaling cached value: %w", err)
	}
	return nil
}

// Delete removes a value from the cache
func (s *CacheService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return domain.BadRequestf("cache key is required")
	}
	return s.store.Delete(ctx, key)
}

// IssueTicket returns a random ticket that resolves to userID once.
func (s *CacheService) IssueTicket(ctx context.Context, userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", domain.ErrMissingUser
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating ticket: %w", err)
	}
	ticket := hex.EncodeToString(buf)
	if err := s.store.Set(ctx, ticketPrefix+ticket, []byte(userID.String()), s.ticketTTL); err != nil {
		return "", fmt.Errorf("storing ticket: %w", err)
	}
	return ticket, nil
}

// ConsumeTicket resolves and invalidates a ticket.
func (s *CacheService) ConsumeTicket(ctx context.Context, ticket string) (uuid.UUID, error) {
	if ticket == "" {
		return uuid.Nil, domain.BadRequestf("ticket is required")
	}
	data, found, err := s.store.Take(ctx, ticketPrefix+ticket)
	if err != nil {
		return uuid.Nil, fmt.Errorf("reading ticket: %w", err)
	}
	if !found {
		return uuid.Nil, fmt.Errorf("ticket %w", domain.ErrNotFound)
	}
	userID, err := uuid.ParseBytes(data)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing ticket owner: %w", err)
	}
	return userID, nil
}
