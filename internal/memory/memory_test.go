package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/impacttracker/esgrag/internal/llm"
)

func TestStore_RecentReturnsOldestFirst(t *testing.T) {
	s := NewStore(20, time.Hour)
	defer s.Close()

	s.AddUserTurn("s1", "first")
	s.AddAssistantTurn("s1", "second")
	s.AddUserTurn("s1", "third")

	messages := s.Recent("s1", 10)
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if messages[0].Content != "first" || messages[2].Content != "third" {
		t.Errorf("wrong order: %v", messages)
	}
	if messages[1].Role != llm.RoleAssistant {
		t.Errorf("got role %q", messages[1].Role)
	}
}

func TestStore_RecentWindowBound(t *testing.T) {
	s := NewStore(20, time.Hour)
	defer s.Close()

	for i := 0; i < 8; i++ {
		s.AddUserTurn("s1", fmt.Sprintf("turn-%d", i))
	}

	messages := s.Recent("s1", 3)
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if messages[0].Content != "turn-5" {
		t.Errorf("window misaligned: %v", messages)
	}
}

func TestStore_MaxTurnsEviction(t *testing.T) {
	s := NewStore(4, time.Hour)
	defer s.Close()

	for i := 0; i < 10; i++ {
		s.AddUserTurn("s1", fmt.Sprintf("turn-%d", i))
	}

	messages := s.Recent("s1", 100)
	if len(messages) != 4 {
		t.Fatalf("expected 4 retained turns, got %d", len(messages))
	}
	if messages[0].Content != "turn-6" {
		t.Errorf("oldest retained turn wrong: %v", messages)
	}
}

func TestStore_UnknownSession(t *testing.T) {
	s := NewStore(20, time.Hour)
	defer s.Close()

	if messages := s.Recent("nope", 5); messages != nil {
		t.Errorf("expected nil, got %v", messages)
	}
}

func TestStore_ClearSession(t *testing.T) {
	s := NewStore(20, time.Hour)
	defer s.Close()

	s.AddUserTurn("s1", "hello")
	s.ClearSession("s1")

	if messages := s.Recent("s1", 5); messages != nil {
		t.Errorf("expected cleared session, got %v", messages)
	}
}

func TestStore_TTLCleanup(t *testing.T) {
	s := NewStore(20, time.Millisecond)
	defer s.Close()

	s.AddUserTurn("s1", "hello")
	time.Sleep(5 * time.Millisecond)
	s.cleanup()

	if messages := s.Recent("s1", 5); messages != nil {
		t.Errorf("expected expired session, got %v", messages)
	}
}
