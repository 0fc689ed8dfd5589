// Package state provides the session store implementations: an in-memory
// durable store used by tests, and the per-tab store registry backing the
// X-Tab-ID contract of the web layer.
package state

import (
	"sync"

	"github.com/siesnerul/resultdesk/core/session"
)

// MemDurable is an in-memory session.DurableStore holding one session.
type MemDurable struct {
	mu   sync.Mutex
	sess session.Session
	set  bool
}

var _ session.DurableStore = (*MemDurable)(nil)

func NewMemDurable() *MemDurable { return &MemDurable{} }

func (s *MemDurable) Get() (session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess, s.set
}

func (s *MemDurable) Set(sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sess
	s.set = true
	return nil
}

func (s *MemDurable) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = session.Session{}
	s.set = false
	return nil
}
