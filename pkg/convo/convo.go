// Package convo holds per-conversation turn history in process memory.
//
// The store owns conversation identifiers and their ordered turns. History is
// bounded: once a conversation exceeds the configured maximum, the oldest
// turns are evicted first. Nothing here survives a restart; a durable backend
// can replace this store behind the same contract.
package convo

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opsgraph/opsgraph/pkg/graph"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Source attributes a piece of an assistant turn to the graph fact that
// grounded it. Display-only; never re-derived from free text.
type Source struct {
	Kind      graph.Kind `json:"kind"`
	ID        string     `json:"id"`
	Attribute string     `json:"attribute,omitempty"`
}

// Turn is a single message within a conversation. Immutable once appended.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []Source  `json:"sources,omitempty"`
}

type conversation struct {
	// seq serializes whole read-history-then-append sequences (see Lock).
	// mu guards the turns slice for individual reads and appends.
	seq       sync.Mutex
	mu        sync.Mutex
	createdAt time.Time
	turns     []Turn
}

// Store is an in-memory conversation store. Safe for concurrent use; the
// per-conversation Lock serializes read-then-append sequences on one
// identifier while distinct conversations proceed in parallel.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	maxTurns      int
}

// DefaultMaxTurns bounds retained history per conversation (10 exchanges).
const DefaultMaxTurns = 20

// NewStore creates a store retaining at most maxTurns turns per conversation.
// Non-positive maxTurns falls back to DefaultMaxTurns.
func NewStore(maxTurns int) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Store{
		conversations: make(map[string]*conversation),
		maxTurns:      maxTurns,
	}
}

// GetOrCreate resolves a conversation identifier, generating a fresh one when
// id is empty. Returns the resolved id and whether it was newly created.
func (s *Store) GetOrCreate(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if _, ok := s.conversations[id]; ok {
			return id, false
		}
	} else {
		id = uuid.NewString()
	}

	s.conversations[id] = &conversation{createdAt: time.Now()}
	return id, true
}

// Lock acquires the per-conversation mutex and returns its release func.
// Callers hold it across the read-history-then-append sequence so concurrent
// requests on the same conversation cannot interleave turns.
func (s *Store) Lock(id string) (unlock func(), ok bool) {
	s.mu.RLock()
	conv, found := s.conversations[id]
	s.mu.RUnlock()
	if !found {
		return nil, false
	}

	conv.seq.Lock()
	return conv.seq.Unlock, true
}

// Recent returns up to maxTurns of the most recently appended turns, oldest
// first. Returns nil for an unknown conversation.
func (s *Store) Recent(id string, maxTurns int) []Turn {
	s.mu.RLock()
	conv, found := s.conversations[id]
	s.mu.RUnlock()
	if !found {
		return nil
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	turns := conv.turns
	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}

	// Copy so callers never alias internal state.
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Append adds turns to a conversation in order, evicting the oldest turns
// once the retained count exceeds the store maximum. Returns false for an
// unknown conversation.
func (s *Store) Append(id string, turns ...Turn) bool {
	s.mu.RLock()
	conv, found := s.conversations[id]
	s.mu.RUnlock()
	if !found {
		return false
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	conv.turns = append(conv.turns, turns...)
	if len(conv.turns) > s.maxTurns {
		conv.turns = conv.turns[len(conv.turns)-s.maxTurns:]
	}
	return true
}

// Len returns the number of retained turns for a conversation.
func (s *Store) Len(id string) int {
	s.mu.RLock()
	conv, found := s.conversations[id]
	s.mu.RUnlock()
	if !found {
		return 0
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()
	return len(conv.turns)
}

// Count returns the number of active conversations.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// Clear removes a conversation entirely. Returns false if it did not exist.
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return false
	}
	delete(s.conversations, id)
	return true
}
