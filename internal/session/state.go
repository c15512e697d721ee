// Package session holds the conversation and analysis state of one client
// session and drives the fetches that update it.
package session

import (
	"sync"

	"robin/internal/domain"
)

// Snapshot is a consistent, read-only copy of a State.
type Snapshot struct {
	Messages []domain.Message
	Loading  bool
	Err      error
	Context  *domain.AnalysisContext
}

// State is the session's context store: the message log, a loading flag, the
// last error and the current analysis context. Every mutation replaces or
// appends exactly one field.
type State struct {
	mu       sync.RWMutex
	messages []domain.Message
	loading  bool
	err      error
	context  *domain.AnalysisContext
}

// NewState returns an empty store.
func NewState() *State {
	return &State{messages: []domain.Message{}}
}

// AppendMessage adds m to the end of the log.
func (s *State) AppendMessage(m domain.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
}

// SetLoading marks whether a fetch is outstanding.
func (s *State) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
}

// SetError records err. A nil err clears the previous one.
func (s *State) SetError(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// SetContext replaces the analysis context wholesale.
func (s *State) SetContext(ctx *domain.AnalysisContext) {
	s.mu.Lock()
	s.context = ctx
	s.mu.Unlock()
}

// SwapContext replaces the analysis context with next only if it is still
// old. It reports whether the swap happened.
func (s *State) SwapContext(old, next *domain.AnalysisContext) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.context != old {
		return false
	}
	s.context = next
	return true
}

// ClearMessages empties the log. The analysis context is left untouched.
func (s *State) ClearMessages() {
	s.mu.Lock()
	s.messages = []domain.Message{}
	s.mu.Unlock()
}

// Messages returns a copy of the log.
func (s *State) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Message(nil), s.messages...)
}

// Loading reports whether a fetch is outstanding.
func (s *State) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last recorded error, nil when none.
func (s *State) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Context returns the current analysis context, nil before the first
// successful initialization.
func (s *State) Context() *domain.AnalysisContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.context
}

// Snapshot returns all fields read under one lock.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Messages: append([]domain.Message{}, s.messages...),
		Loading:  s.loading,
		Err:      s.err,
		Context:  s.context,
	}
}
