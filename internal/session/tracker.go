// Package session holds the currently authenticated credential and
// tells interested parties when it changes. The tracker is an owned,
// injectable dependency threaded through construction; nothing in the
// package is global.
package session

import (
	"sync"

	"github.com/edupanel/apiserver/types"
)

// Subscriber receives the new credential, or nil when the session was
// cleared. Subscribers fire synchronously in subscription order, but
// callers must not depend on their position relative to other
// subscribers.
type Subscriber func(cred *types.Credential)

// Tracker records the active credential and notifies subscribers on
// every change. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	current *types.Credential
	subs    map[int]Subscriber
	order   []int
	nextID  int
}

func NewTracker() *Tracker {
	return &Tracker{subs: make(map[int]Subscriber)}
}

// Current returns the active credential, or nil when logged out.
func (t *Tracker) Current() *types.Credential {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return nil
	}
	cred := *t.current
	return &cred
}

// Set records a new credential and notifies subscribers.
func (t *Tracker) Set(cred types.Credential) {
	t.mu.Lock()
	t.current = &cred
	subs := t.snapshot()
	t.mu.Unlock()

	for _, sub := range subs {
		sub(&cred)
	}
}

// Clear drops the credential and notifies subscribers with nil. It
// never fails: local state is authoritative even when the remote side
// could not invalidate the session.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.current = nil
	subs := t.snapshot()
	t.mu.Unlock()

	for _, sub := range subs {
		sub(nil)
	}
}

// Subscribe registers a subscriber and returns its unsubscribe func.
// A consumer that goes away mid-request unsubscribes on teardown so a
// late change cannot reach it.
func (t *Tracker) Subscribe(sub Subscriber) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = sub
	t.order = append(t.order, id)
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
	}
}

// snapshot returns live subscribers in subscription order. Callers must
// hold t.mu.
func (t *Tracker) snapshot() []Subscriber {
	subs := make([]Subscriber, 0, len(t.subs))
	for _, id := range t.order {
		if sub, ok := t.subs[id]; ok {
			subs = append(subs, sub)
		}
	}
	return subs
}
