// Package session holds per-browser-session view state: which of the known
// users are active, and where rendered entities sit on screen. A Session is
// created when a client connects and handed down explicitly; there is no
// package-level state.
package session

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/model"
)

// Session is the mutable state of one editing session. It is owned by a
// single goroutine (the event loop rendering the session) and is not safe
// for concurrent use.
type Session struct {
	known  map[string]*model.User
	active mapset.Set[string]
	refs   map[string]EntityRef
}

// EntityRef records where an entity is rendered, for comment
// scroll-targeting.
type EntityRef struct {
	EntityID  string
	OffsetTop int
}

// New creates a session over the users known at session start.
func New(users []*model.User) *Session {
	known := make(map[string]*model.User, len(users))
	for _, user := range users {
		known[user.Email] = user
	}
	return &Session{
		known:  known,
		active: mapset.NewSet[string](),
		refs:   make(map[string]EntityRef),
	}
}

// Activate marks a known user as active. Unknown emails are ignored.
func (s *Session) Activate(email string) bool {
	if _, ok := s.known[email]; !ok {
		return false
	}
	s.active.Add(email)
	return true
}

// Deactivate removes a user from the active selection.
func (s *Session) Deactivate(email string) {
	s.active.Remove(email)
}

// Toggle flips a user's active state, reporting the new state.
func (s *Session) Toggle(email string) bool {
	if s.active.Contains(email) {
		s.active.Remove(email)
		return false
	}
	return s.Activate(email)
}

// IsActive reports whether the user is part of the active selection.
func (s *Session) IsActive(email string) bool {
	return s.active.Contains(email)
}

// Active returns the active users sorted by email, so renders are stable.
func (s *Session) Active() []*model.User {
	emails := s.active.ToSlice()
	sort.Strings(emails)

	users := make([]*model.User, 0, len(emails))
	for _, email := range emails {
		if user, ok := s.known[email]; ok {
			users = append(users, user)
		}
	}
	return users
}

// Users returns every known user sorted by email.
func (s *Session) Users() []*model.User {
	emails := make([]string, 0, len(s.known))
	for email := range s.known {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	users := make([]*model.User, 0, len(emails))
	for _, email := range emails {
		users = append(users, s.known[email])
	}
	return users
}

// RegisterRef records the rendered position of an entity.
func (s *Session) RegisterRef(entityID string, offsetTop int) {
	s.refs[entityID] = EntityRef{EntityID: entityID, OffsetTop: offsetTop}
}

// UnregisterRef drops the position record, typically when the entity's view
// unmounts. Late fetch results for it are then discarded by the caller.
func (s *Session) UnregisterRef(entityID string) {
	delete(s.refs, entityID)
}

// Ref looks up the rendered position of an entity.
func (s *Session) Ref(entityID string) (EntityRef, bool) {
	ref, ok := s.refs[entityID]
	return ref, ok
}

// Close tears the session down at session end.
func (s *Session) Close() {
	s.active.Clear()
	s.refs = make(map[string]EntityRef)
}
