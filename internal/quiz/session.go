package quiz

import (
	"context"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionID is used when a caller does not identify its session, which
// keeps single-user clients working against one shared record.
const DefaultSessionID = "default"

// Session holds the active question, its reference answer and the
// conversation context. Callers must hold the session lock while mutating it.
type Session struct {
	mu sync.Mutex

	id              string
	currentQuestion string
	correctAnswer   string
	history         []Turn
	updatedAt       time.Time

	// lastUsed is unix nanos of the last store access; read without mu.
	lastUsed atomic.Int64
}

func newSession(id string, now time.Time) *Session {
	s := &Session{id: id, updatedAt: now.UTC()}
	s.touch(now)
	return s
}

func (s *Session) touch(now time.Time) { s.lastUsed.Store(now.UnixNano()) }

func (s *Session) idleSince() time.Time { return time.Unix(0, s.lastUsed.Load()) }

func (s *Session) ID() string { return s.id }

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Snapshot returns a copy of the session fields. It takes the lock itself.
func (s *Session) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *Session) state() SessionState {
	return SessionState{
		ID:              s.id,
		CurrentQuestion: s.currentQuestion,
		CorrectAnswer:   s.correctAnswer,
		Turns:           len(s.history),
		UpdatedAt:       s.updatedAt,
	}
}

func (s *Session) SetQuestionAndAnswer(question, answer string) {
	s.currentQuestion = question
	s.correctAnswer = answer
	s.updatedAt = time.Now().UTC()
}

func (s *Session) setAnswer(answer string) {
	s.correctAnswer = answer
	s.updatedAt = time.Now().UTC()
}

// Clear drops the question, the answer and the conversation context.
func (s *Session) Clear() {
	s.currentQuestion = ""
	s.correctAnswer = ""
	s.history = nil
	s.updatedAt = time.Now().UTC()
}

func (s *Session) historyCopy() []Turn {
	if len(s.history) == 0 {
		return nil
	}
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// remember appends one exchange and evicts the oldest turns beyond limit.
func (s *Session) remember(limit int, prompt, reply string) {
	s.history = appendTurns(s.history, limit,
		Turn{Role: RoleUser, Text: prompt},
		Turn{Role: RoleModel, Text: reply},
	)
}

func appendTurns(history []Turn, limit int, turns ...Turn) []Turn {
	history = append(history, turns...)
	if limit <= 0 || len(history) <= limit {
		return history
	}

	trimmed := history[len(history)-limit:]
	// upstream conversations must open with a user turn
	for len(trimmed) > 0 && trimmed[0].Role != RoleUser {
		trimmed = trimmed[1:]
	}

	out := make([]Turn, len(trimmed))
	copy(out, trimmed)
	return out
}

const (
	DefaultSessionTTL  = 2 * time.Hour
	DefaultMaxSessions = 10000
)

type StoreOptions struct {
	// IdleTTL drops sessions not used for this long; <= 0 uses the default.
	IdleTTL time.Duration
	// MaxSessions caps the store; the least recently used session is evicted
	// to make room. <= 0 uses the default.
	MaxSessions int
}

// SessionStore keeps sessions in memory, keyed by id. Idle sessions expire
// and the store never holds more than its configured maximum.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	idleTTL  time.Duration
	max      int
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithOptions(StoreOptions{})
}

func NewSessionStoreWithOptions(opts StoreOptions) *SessionStore {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultSessionTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		idleTTL:  opts.IdleTTL,
		max:      opts.MaxSessions,
		now:      time.Now,
	}
}

func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultSessionID
	}
	return id
}

// Acquire returns the session for id, creating an empty one on first use.
// A blank id resolves to DefaultSessionID.
func (st *SessionStore) Acquire(id string) *Session {
	id = normalizeID(id)
	if s, ok := st.Lookup(id); ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	if s, ok := st.sessions[id]; ok {
		s.touch(now)
		return s
	}
	s := newSession(id, now)
	st.insertLocked(s, now)
	return s
}

// Lookup returns an existing session without creating one.
func (st *SessionStore) Lookup(id string) (*Session, bool) {
	id = normalizeID(id)

	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		s.touch(st.now())
	}
	return s, ok
}

// Create provisions a new session with a random id.
func (st *SessionStore) Create() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	s := newSession(uuid.NewString(), now)
	st.insertLocked(s, now)
	return s
}

func (st *SessionStore) insertLocked(s *Session, now time.Time) {
	if len(st.sessions) >= st.max {
		st.sweepLocked(now)
	}
	if len(st.sessions) >= st.max {
		st.evictOldestLocked()
	}
	st.sessions[s.id] = s
}

// Sweep removes sessions idle for longer than the TTL and reports how many
// were dropped.
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sweepLocked(st.now())
}

func (st *SessionStore) sweepLocked(now time.Time) int {
	cutoff := now.Add(-st.idleTTL)
	removed := 0
	for id, s := range st.sessions {
		if s.idleSince().Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

func (st *SessionStore) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, s := range st.sessions {
		if used := s.idleSince(); oldestID == "" || used.Before(oldest) {
			oldestID, oldest = id, used
		}
	}
	if oldestID != "" {
		delete(st.sessions, oldestID)
	}
}

// Run sweeps idle sessions every interval until ctx is done.
func (st *SessionStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				log.Printf("[quiz] expired %d idle sessions, %d remain", n, st.Len())
			}
		}
	}
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
