package promo

import "sync"

// Store keeps one mutable session per user. A lookup miss is absence, not
// an error: the conversation layer drops events from users without a
// session. All mutation happens under the store lock, so a read-modify-
// write on one user's session never interleaves with another transition
// for the same user.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewStore constructs an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get returns a copy of the user's session if one exists.
func (s *Store) Get(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return sess.clone(), true
}

// CreateOrReplace starts a fresh session for the user on the given
// network, discarding any previous conversation. The network choice is
// the first transition, so the new session awaits a token address.
func (s *Store) CreateOrReplace(userID int64, network string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = &Session{
		UserID:  userID,
		Step:    StepAwaitingTokenAddress,
		Network: network,
	}
}

// Update applies the mutator to the user's session under the store lock.
// It reports false when no session exists; the mutator is not called.
func (s *Store) Update(userID int64, mutate func(*Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return false
	}
	mutate(sess)
	return true
}

// Remove deletes the user's session. Removing an absent session is a no-op.
func (s *Store) Remove(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// StepOf reports the user's current step, or "" when no session exists.
func (s *Store) StepOf(userID int64) Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess.Step
	}
	return ""
}
