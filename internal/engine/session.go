package engine

import (
	"sync"

	"github.com/timik232/dataset-bot/internal/dataset"
	"github.com/timik232/dataset-bot/internal/llm"
)

// Draft is the single in-construction dialog example a user may own. It
// stays out of the dataset document until the owning wizard commits it.
type Draft struct {
	Key     string
	Example *dataset.Example
}

// ChatState accumulates a live model chat until it is frozen into an example.
type ChatState struct {
	System  string
	Actions []string
	History []string
	Last    *llm.Reply
}

// Session is the per-user conversation context. It is only ever touched by
// that user's own inbound-message handling.
type Session struct {
	UserID int64
	State  *State

	// Wizard scratch space.
	Draft      *Draft
	Chat       *ChatState
	EditKey    string
	ReplicaIdx int
	DeleteKey  string

	// LastReply is the most recent structured model answer, kept for the
	// JSON-structure command until the chat that produced it is saved.
	LastReply *llm.Reply
}

// DiscardWizardState drops everything an in-flight wizard accumulated. The
// edit-menu topic selection survives: cancelling a sub-step returns to the
// edit menu with its selection intact.
func (s *Session) DiscardWizardState() {
	s.Draft = nil
	s.Chat = nil
	s.DeleteKey = ""
	s.ReplicaIdx = 0
}

// Sessions hands out per-user sessions, creating them on first use.
type Sessions struct {
	mu     sync.Mutex
	root   string
	byUser map[int64]*Session
}

// NewSessions creates a session table whose states rest at root.
func NewSessions(root string) *Sessions {
	return &Sessions{root: root, byUser: make(map[int64]*Session)}
}

// Get returns the session for a user, creating it if needed.
func (s *Sessions) Get(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byUser[userID]
	if !ok {
		sess = &Session{UserID: userID, State: NewState(s.root)}
		s.byUser[userID] = sess
	}
	return sess
}

// Reset drops a user's session entirely.
func (s *Sessions) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
}
