package domain

import (
	"sync"
	"time"
)

// TurnState is the position of a session within its per-turn state machine.
type TurnState int

// Turn states. A session rests in Idle. A turn moves Idle -> AwaitingUserInput
// while the user message is taken, then Retrieving -> GeneratingReply and
// back to Idle. Error is entered only from Retrieving or GeneratingReply and
// always returns to AwaitingUserInput, where the session waits for the user
// to retry. A turn that fails before retrieval stays in AwaitingUserInput.
const (
	TurnIdle TurnState = iota
	TurnAwaitingUserInput
	TurnRetrieving
	TurnGeneratingReply
	TurnError
)

// String returns the state name.
func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnAwaitingUserInput:
		return "awaiting_user_input"
	case TurnRetrieving:
		return "retrieving"
	case TurnGeneratingReply:
		return "generating_reply"
	case TurnError:
		return "error"
	default:
		return "unknown"
	}
}

// Busy reports whether the state belongs to an in-flight turn.
func (s TurnState) Busy() bool {
	return s == TurnRetrieving || s == TurnGeneratingReply
}

// Session is one conversation. It owns the ordered history of user and
// assistant messages; system prompts are rebuilt every turn and never stored.
//
// A Session is safe for concurrent use. At most one turn may be in flight:
// BeginTurn fails while another turn holds the session.
type Session struct {
	// ID uniquely identifies the session.
	ID string

	// Mode is the name of the mode the session was created with.
	Mode string

	// CreatedAt is when the conversation started.
	CreatedAt time.Time

	turn     sync.Mutex
	mu       sync.RWMutex
	greeting string
	history  []Message
	state    TurnState
}

// NewSession creates a session. A non-empty greeting becomes the first
// assistant message of the history.
func NewSession(id, mode, greeting string) *Session {
	s := &Session{
		ID:        id,
		Mode:      mode,
		CreatedAt: time.Now(),
		greeting:  greeting,
		state:     TurnIdle,
	}
	s.history = s.initialHistory()
	return s
}

func (s *Session) initialHistory() []Message {
	if s.greeting == "" {
		return nil
	}
	return []Message{AssistantMessage(s.greeting)}
}

// BeginTurn claims the session for one turn. It returns false without
// blocking when another turn is already in flight.
func (s *Session) BeginTurn() bool {
	return s.turn.TryLock()
}

// EndTurn releases the claim taken by BeginTurn.
func (s *Session) EndTurn() {
	s.turn.Unlock()
}

// Append adds a message to the history.
func (s *Session) Append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msg)
}

// History returns a copy of the conversation history.
func (s *Session) History() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the number of messages in the history.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// State returns the current turn state.
func (s *Session) State() TurnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState moves the session to a new turn state.
func (s *Session) SetState(state TurnState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Reset discards the conversation and restores the greeting.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = s.initialHistory()
	s.state = TurnIdle
}
