package state

import (
	"context"
	"strings"
	"sync"
	"time"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
)

type memoryEntry struct {
	messages  []contractx.Message
	expiresAt time.Time
}

// MemoryStore is a process-local Store with the same whole-session TTL
// semantics as the Redis backend.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *MemoryStore) Load(_ context.Context, userID string) ([]contractx.Message, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[userID]
	if !ok {
		return []contractx.Message{}, nil
	}
	if s.expired(entry) {
		delete(s.entries, userID)
		return []contractx.Message{}, nil
	}
	return cloneMessages(entry.messages), nil
}

func (s *MemoryStore) Save(_ context.Context, userID string, messages []contractx.Message) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{messages: cloneMessages(messages)}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[userID] = entry
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}

func (s *MemoryStore) expired(entry memoryEntry) bool {
	if entry.expiresAt.IsZero() {
		return false
	}
	return !s.now().Before(entry.expiresAt)
}
