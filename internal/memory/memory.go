// Package memory provides server-side conversation history storage for
// session-token clients.
//
// The retrieval pipeline itself never mutates history: it only reads the
// bounded recent window handed to it. This store exists for front-end
// clients that keep a session token instead of resending their history.
package memory

import (
	"sync"
	"time"

	"github.com/impacttracker/esgrag/internal/llm"
)

// DefaultMaxTurns is the default per-session history bound (10 exchanges).
const DefaultMaxTurns = 20

// Turn is a single conversation turn with its arrival time.
type Turn struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// conversation holds the turn history for one session.
type conversation struct {
	turns     []Turn
	createdAt time.Time
	updatedAt time.Time
}

// Store provides in-memory conversation storage with TTL-based expiry.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	maxTurns      int
	ttl           time.Duration
	stop          chan struct{}
}

// NewStore creates a conversation store keeping at most maxTurns turns per
// session, expiring sessions after ttl of inactivity.
func NewStore(maxTurns int, ttl time.Duration) *Store {
	s := &Store{
		conversations: make(map[string]*conversation),
		maxTurns:      maxTurns,
		ttl:           ttl,
		stop:          make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// DefaultStore creates a store with sensible defaults: 20 turns per session,
// 1 hour TTL.
func DefaultStore() *Store {
	return NewStore(DefaultMaxTurns, 1*time.Hour)
}

// Close stops the background cleanup goroutine.
func (s *Store) Close() {
	close(s.stop)
}

// AddUserTurn records a user message for the session.
func (s *Store) AddUserTurn(sessionID, content string) {
	s.addTurn(sessionID, llm.RoleUser, content)
}

// AddAssistantTurn records an assistant message for the session.
func (s *Store) AddAssistantTurn(sessionID, content string) {
	s.addTurn(sessionID, llm.RoleAssistant, content)
}

func (s *Store) addTurn(sessionID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.conversations[sessionID]
	if !exists {
		conv = &conversation{createdAt: time.Now()}
		s.conversations[sessionID] = conv
	}

	conv.turns = append(conv.turns, Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	conv.updatedAt = time.Now()

	if len(conv.turns) > s.maxTurns {
		conv.turns = conv.turns[len(conv.turns)-s.maxTurns:]
	}
}

// Recent returns the last n turns for the session as LLM messages, oldest
// first. Returns nil for an unknown session.
func (s *Store) Recent(sessionID string, n int) []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, exists := s.conversations[sessionID]
	if !exists {
		return nil
	}

	turns := conv.turns
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}

	messages := make([]llm.Message, len(turns))
	for i, t := range turns {
		messages[i] = llm.Message{Role: t.Role, Content: t.Content}
	}
	return messages
}

// ClearSession removes a conversation from memory.
func (s *Store) ClearSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, sessionID)
}

// cleanupLoop periodically removes expired conversations.
func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *Store) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, conv := range s.conversations {
		if now.Sub(conv.updatedAt) > s.ttl {
			delete(s.conversations, id)
		}
	}
}
