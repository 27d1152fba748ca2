// Package registry owns the authoritative username -> (public key, session)
// mapping of the relay.
//
// A username maps to at most one record at any instant. Registration always
// succeeds and replaces the previous record (last writer wins); the superseded
// session is left connected but is no longer reachable under that name.
// Disconnect removes only the records that still reference the closing
// session, so a late disconnect never evicts a newer registration.
//
// All operations are linearizable behind a single RWMutex. Mutations return a
// Change computed under the same lock, which the boundary layer uses to
// broadcast membership; the registry itself never talks to sessions.
package registry

import (
	"sort"
	"sync"

	"github.com/dmitrijs2005/cipherrelay/internal/server/models"
)

// Change describes membership right after one mutation. Version increases
// by one per mutation that altered the mapping.
type Change struct {
	Version   uint64
	Usernames []string
}

type Registry struct {
	mu        sync.RWMutex
	users     map[string]models.User
	bySession map[models.SessionID]map[string]struct{}
	version   uint64
}

func New() *Registry {
	return &Registry{
		users:     make(map[string]models.User),
		bySession: make(map[models.SessionID]map[string]struct{}),
	}
}

// Register stores u, replacing any existing record for u.Username.
func (r *Registry) Register(u models.User) Change {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.users[u.Username]; ok && prev.Session != u.Session {
		r.unindex(prev.Session, prev.Username)
	}

	r.users[u.Username] = u

	names, ok := r.bySession[u.Session]
	if !ok {
		names = make(map[string]struct{})
		r.bySession[u.Session] = names
	}
	names[u.Username] = struct{}{}

	r.version++
	return r.changeLocked()
}

// UnregisterBySession removes every record owned by session and returns the
// removed usernames in sorted order. Nothing removed means the mapping is
// untouched and the returned Change should not be broadcast.
func (r *Registry) UnregisterBySession(session models.SessionID) ([]string, Change) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, ok := r.bySession[session]
	if !ok {
		return nil, r.changeLocked()
	}
	delete(r.bySession, session)

	removed := make([]string, 0, len(names))
	for name := range names {
		if u, ok := r.users[name]; ok && u.Session == session {
			delete(r.users, name)
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)

	if len(removed) > 0 {
		r.version++
	}
	return removed, r.changeLocked()
}

// Lookup returns the current record for username.
func (r *Registry) Lookup(username string) (models.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[username]
	return u, ok
}

// SnapshotPublicKeys returns a point-in-time copy of username -> public key.
func (r *Registry) SnapshotPublicKeys() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.users))
	for name, u := range r.users {
		out[name] = u.PublicKey
	}
	return out
}

// ListUsernames returns the registered usernames in sorted order.
func (r *Registry) ListUsernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.usernamesLocked()
}

// Current returns the membership as of the latest mutation.
func (r *Registry) Current() Change {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.changeLocked()
}

func (r *Registry) unindex(session models.SessionID, username string) {
	names, ok := r.bySession[session]
	if !ok {
		return
	}
	delete(names, username)
	if len(names) == 0 {
		delete(r.bySession, session)
	}
}

func (r *Registry) changeLocked() Change {
	return Change{Version: r.version, Usernames: r.usernamesLocked()}
}

func (r *Registry) usernamesLocked() []string {
	out := make([]string, 0, len(r.users))
	for name := range r.users {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
