// README: In-process conversation store with a per-user lock. Nothing is persisted;
// a restart returns every user to the init state.
package conversation

import "sync"

type Store struct {
	mu       sync.Mutex
	sessions map[string]Session
	locks    map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]Session),
		locks:    make(map[string]*userLock),
	}
}

// Lock serializes turns for one user. The returned func releases it.
func (s *Store) Lock(owner string) func() {
	s.mu.Lock()
	l, ok := s.locks[owner]
	if !ok {
		l = &userLock{}
		s.locks[owner] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, owner)
		}
		s.mu.Unlock()
	}
}

// Get returns the user's session, or a zero Session (StateInit) if none.
func (s *Store) Get(owner string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[owner]
}

func (s *Store) Set(owner string, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.State == StateInit && sess.Draft == nil && sess.Modify == nil {
		delete(s.sessions, owner)
		return
	}
	s.sessions[owner] = sess
}

func (s *Store) Clear(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, owner)
}

// Len returns the number of users with a non-init session.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
