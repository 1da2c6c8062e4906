// Package conversation owns per-user message histories: a bounded in-memory
// map with JSON file persistence and a retention sweep.
package conversation

import (
	"sync"
	"time"
)

// DefaultMaxHistory is the per-user message cap (system message included).
const DefaultMaxHistory = 20

// userState holds one user's history and activity timestamp.
type userState struct {
	messages   []Message
	lastActive time.Time
}

// Store maps user IDs to conversation state. All access goes through the
// store; callers never hold references into the underlying histories.
type Store struct {
	users map[string]*userState
	opts  Options
	mu    sync.RWMutex
}

// Options configures a Store.
type Options struct {
	// MaxHistory caps the number of messages kept per user.
	MaxHistory int

	// InactivityWindow is how long a user may stay idle before the
	// retention sweep drops their history.
	InactivityWindow time.Duration

	// MaxSerializedSize is the byte budget for the persisted document.
	MaxSerializedSize int64

	// Persistence handles durable save/load. Nil means no persistence.
	Persistence Persistence

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = DefaultMaxHistory
	}
	if opts.Persistence == nil {
		opts.Persistence = NewNoopPersistence()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Store{
		users: make(map[string]*userState),
		opts:  opts,
	}
}

// GetOrCreate returns whether the user's history had to be created. A new
// history is seeded with a single system message and a fresh activity stamp.
func (s *Store) GetOrCreate(userID string, systemPrompt string) (created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[userID]; exists {
		return false
	}

	s.users[userID] = &userState{
		messages:   []Message{{Role: RoleSystem, Content: systemPrompt}},
		lastActive: s.opts.Clock(),
	}
	return true
}

// Append adds a message to the user's history, stamps activity, and applies
// the trim invariant. A missing history is created empty first; the photo
// path appends without seeding a system message.
func (s *Store) Append(userID string, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, exists := s.users[userID]
	if !exists {
		state = &userState{}
		s.users[userID] = state
	}

	state.messages = append(state.messages, msg)
	state.lastActive = s.opts.Clock()
	state.trim(s.opts.MaxHistory)
}

// History returns a copy of the user's messages, oldest first.
func (s *Store) History(userID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, exists := s.users[userID]
	if !exists {
		return nil
	}

	out := make([]Message, len(state.messages))
	copy(out, state.messages)
	return out
}

// Reset replaces the user's history with a fresh system-seeded one.
func (s *Store) Reset(userID string, systemPrompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[userID] = &userState{
		messages:   []Message{{Role: RoleSystem, Content: systemPrompt}},
		lastActive: s.opts.Clock(),
	}
}

// Len returns the number of messages in the user's history.
func (s *Store) Len(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, exists := s.users[userID]
	if !exists {
		return 0
	}
	return len(state.messages)
}

// Users returns the number of tracked users.
func (s *Store) Users() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.users)
}

// trim enforces the history cap, always preserving the leading system
// message when one is present.
func (st *userState) trim(maxHistory int) {
	if len(st.messages) <= maxHistory {
		return
	}

	if st.messages[0].Role == RoleSystem {
		kept := make([]Message, 0, maxHistory)
		kept = append(kept, st.messages[0])
		kept = append(kept, st.messages[len(st.messages)-(maxHistory-1):]...)
		st.messages = kept
		return
	}

	st.messages = st.messages[len(st.messages)-maxHistory:]
}
