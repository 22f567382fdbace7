// Package session owns all per-user dialog state: the ordered chat history and
// the optional in-progress assessment for each username.
//
// The store guarantees at-most-one in-flight mutating operation per username
// while letting distinct usernames proceed independently: every username gets
// its own mutex, and all read-modify-write transitions run through Update under
// that mutex. Nothing here blocks on the network; callers must perform analysis
// calls outside Update.
package session

import (
	"sync"

	"github.com/mentalyze/server/internal/domain"
)

// Store holds chat histories and assessment states keyed by username.
// State lives only in memory and does not survive a restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*state
}

// state is the mutable substrate for one username.
type state struct {
	mu         sync.Mutex
	history    []domain.Turn
	assessment *domain.AssessmentState
}

// Session is the view of one username's state handed to Update callbacks.
// It must not be retained after the callback returns.
type Session struct {
	st *state
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*state)}
}

// lookup returns the state for user without creating one.
func (s *Store) lookup(user string) *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[user]
}

// getOrCreate returns the state for user, creating an empty one on first access.
func (s *Store) getOrCreate(user string) *state {
	if st := s.lookup(user); st != nil {
		return st
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[user]; ok {
		return st
	}
	st := &state{}
	s.sessions[user] = st
	return st
}

// Update runs fn under the per-user lock. All state transitions that read and
// then write the same username's session must go through Update so that
// concurrent requests for one username serialize instead of losing writes.
func (s *Store) Update(user string, fn func(*Session)) {
	st := s.getOrCreate(user)
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&Session{st: st})
}

// History returns a copy of the user's chat history, oldest turn first.
func (s *Store) History(user string) []domain.Turn {
	st := s.lookup(user)
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return copyTurns(st.history)
}

// AppendTurn appends one turn to the user's chat history.
func (s *Store) AppendTurn(user string, t domain.Turn) {
	s.Update(user, func(sess *Session) {
		sess.AppendTurn(t)
	})
}

// Assessment returns a copy of the user's in-progress assessment state, if any.
func (s *Store) Assessment(user string) (domain.AssessmentState, bool) {
	st := s.lookup(user)
	if st == nil {
		return domain.AssessmentState{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.assessment == nil {
		return domain.AssessmentState{}, false
	}
	return copyAssessment(st.assessment), true
}

// ClearHistory removes the user's chat history. Clearing an absent or already
// empty history is a no-op.
func (s *Store) ClearHistory(user string) {
	if st := s.lookup(user); st != nil {
		st.mu.Lock()
		st.history = nil
		st.mu.Unlock()
	}
}

// ClearAssessment removes the user's assessment state if one exists.
func (s *Store) ClearAssessment(user string) {
	if st := s.lookup(user); st != nil {
		st.mu.Lock()
		st.assessment = nil
		st.mu.Unlock()
	}
}

// History returns a copy of the chat history visible to this callback.
func (sess *Session) History() []domain.Turn {
	return copyTurns(sess.st.history)
}

// AppendTurn appends one turn to the chat history.
func (sess *Session) AppendTurn(t domain.Turn) {
	sess.st.history = append(sess.st.history, t)
}

// Assessment returns a copy of the in-progress assessment state, if any.
func (sess *Session) Assessment() (domain.AssessmentState, bool) {
	if sess.st.assessment == nil {
		return domain.AssessmentState{}, false
	}
	return copyAssessment(sess.st.assessment), true
}

// SetAssessment stores state as the user's assessment, replacing any existing one.
func (sess *Session) SetAssessment(state domain.AssessmentState) {
	cp := copyAssessment(&state)
	sess.st.assessment = &cp
}

// ClearAssessment removes the assessment state. Safe to call when absent.
func (sess *Session) ClearAssessment() {
	sess.st.assessment = nil
}

func copyTurns(turns []domain.Turn) []domain.Turn {
	if len(turns) == 0 {
		return nil
	}
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}

func copyAssessment(a *domain.AssessmentState) domain.AssessmentState {
	answers := make([]string, len(a.Answers))
	copy(answers, a.Answers)
	return domain.AssessmentState{QuestionIndex: a.QuestionIndex, Answers: answers}
}
