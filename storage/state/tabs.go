package state

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/siesnerul/resultdesk/core/session"
)

// Tabs is the registry of tab-scoped stores, keyed by the tab ID each page
// generates for itself. Entries live as long as the impersonation credential
// they may hold; an idle tab's state simply ages out.
type Tabs struct {
	buckets *expirable.LRU[string, *TabState]
}

func NewTabs(maxTabs int, ttl time.Duration) *Tabs {
	return &Tabs{buckets: expirable.NewLRU[string, *TabState](maxTabs, nil, ttl)}
}

// NewID mints a fresh tab identifier.
func (t *Tabs) NewID() string { return uuid.NewString() }

// Bucket returns the store for a tab, creating it on first use.
func (t *Tabs) Bucket(id string) session.TabStore {
	if st, ok := t.buckets.Get(id); ok {
		return st
	}
	st := &TabState{}
	t.buckets.Add(id, st)
	return st
}

// TabState is one tab's process-lifetime store.
type TabState struct {
	mu    sync.Mutex
	grant session.Grant
	set   bool
}

var _ session.TabStore = (*TabState)(nil)

func (s *TabState) Grant() (session.Grant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grant, s.set
}

func (s *TabState) SetGrant(g session.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grant = g
	s.set = true
	return nil
}

func (s *TabState) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grant = session.Grant{}
	s.set = false
	return nil
}
