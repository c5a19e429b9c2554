// Package service wires the dispatch core into the inbound message flow.
package service

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/capitalize-ai/dispatch-core/internal/model"
)

const (
	// DefaultHistoryCapacity is how many turns HistoryStore keeps per recipient.
	DefaultHistoryCapacity = 50
	// DefaultMaxRecipients is how many recipients HistoryStore remembers.
	DefaultMaxRecipients = 10000
)

// History stores recent conversation turns per recipient.
type History interface {
	// Recent returns up to limit of the latest turns, oldest first.
	Recent(ctx context.Context, recipient string, limit int) ([]model.ConversationTurn, error)
	// Append adds turns to the end of the recipient's history.
	Append(ctx context.Context, recipient string, turns ...model.ConversationTurn) error
}

// HistoryStore is an in-memory History. It would be replaced with a document
// store in production. Once more than maxRecipients have written, the
// recipient whose last append is oldest is forgotten.
type HistoryStore struct {
	capacity      int
	maxRecipients int
	now           func() time.Time

	turns map[string]*recipientHistory
	lru   *list.List // of recipient IDs, most recently appended first
	mu    sync.RWMutex
}

type recipientHistory struct {
	turns []model.ConversationTurn
	elem  *list.Element
}

// HistoryOption configures a HistoryStore.
type HistoryOption func(*HistoryStore)

// WithMaxRecipients bounds how many recipients are remembered.
func WithMaxRecipients(n int) HistoryOption {
	return func(s *HistoryStore) {
		if n > 0 {
			s.maxRecipients = n
		}
	}
}

// NewHistoryStore creates a store keeping at most capacity turns per
// recipient. Non-positive capacity uses DefaultHistoryCapacity.
func NewHistoryStore(capacity int, opts ...HistoryOption) *HistoryStore {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	s := &HistoryStore{
		capacity:      capacity,
		maxRecipients: DefaultMaxRecipients,
		now:           time.Now,
		turns:         make(map[string]*recipientHistory),
		lru:           list.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recent implements History.
func (s *HistoryStore) Recent(_ context.Context, recipient string, limit int) ([]model.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var turns []model.ConversationTurn
	if h, ok := s.turns[recipient]; ok {
		turns = h.turns
	}
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	out := make([]model.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

// Append implements History. Turns without a timestamp are stamped now.
func (s *HistoryStore) Append(_ context.Context, recipient string, turns ...model.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.turns[recipient]
	if ok {
		s.lru.MoveToFront(h.elem)
	} else {
		h = &recipientHistory{elem: s.lru.PushFront(recipient)}
		s.turns[recipient] = h
		s.evict()
	}

	now := s.now()
	for _, t := range turns {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		h.turns = append(h.turns, t)
	}
	if over := len(h.turns) - s.capacity; over > 0 {
		h.turns = append([]model.ConversationTurn(nil), h.turns[over:]...)
	}

	return nil
}

// evict drops the least recently appended recipients beyond maxRecipients.
// Callers hold the write lock.
func (s *HistoryStore) evict() {
	for s.lru.Len() > s.maxRecipients {
		oldest := s.lru.Back()
		s.lru.Remove(oldest)
		delete(s.turns, oldest.Value.(string))
	}
}

// Len returns the number of turns stored for recipient.
func (s *HistoryStore) Len(recipient string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if h, ok := s.turns[recipient]; ok {
		return len(h.turns)
	}
	return 0
}

// Recipients returns how many recipients have stored turns.
func (s *HistoryStore) Recipients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}
