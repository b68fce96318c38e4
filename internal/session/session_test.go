package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/model"
)

func testUsers() []*model.User {
	return []*model.User{
		{Email: "bob@example.com", Name: "Bob", Color: "#00ff00"},
		{Email: "alice@example.com", Name: "Alice", Color: "#ff0000"},
	}
}

func TestActivateKnownUser(t *testing.T) {
	s := New(testUsers())
	assert.True(t, s.Activate("alice@example.com"))
	assert.True(t, s.IsActive("alice@example.com"))
	assert.False(t, s.IsActive("bob@example.com"))
}

func TestActivateUnknownUserIgnored(t *testing.T) {
	s := New(testUsers())
	assert.False(t, s.Activate("nobody@example.com"))
	assert.Empty(t, s.Active())
}

func TestToggle(t *testing.T) {
	s := New(testUsers())
	assert.True(t, s.Toggle("bob@example.com"))
	assert.True(t, s.IsActive("bob@example.com"))
	assert.False(t, s.Toggle("bob@example.com"))
	assert.False(t, s.IsActive("bob@example.com"))
}

func TestActiveSortedByEmail(t *testing.T) {
	s := New(testUsers())
	s.Activate("bob@example.com")
	s.Activate("alice@example.com")

	active := s.Active()
	assert.Len(t, active, 2)
	assert.Equal(t, "alice@example.com", active[0].Email)
	assert.Equal(t, "bob@example.com", active[1].Email)
}

func TestUsersSorted(t *testing.T) {
	s := New(testUsers())
	users := s.Users()
	assert.Len(t, users, 2)
	assert.Equal(t, "alice@example.com", users[0].Email)
}

func TestEntityRefs(t *testing.T) {
	s := New(nil)
	s.RegisterRef("e1", 120)

	ref, ok := s.Ref("e1")
	assert.True(t, ok)
	assert.Equal(t, 120, ref.OffsetTop)

	s.UnregisterRef("e1")
	_, ok = s.Ref("e1")
	assert.False(t, ok)
}

func TestClose(t *testing.T) {
	s := New(testUsers())
	s.Activate("alice@example.com")
	s.RegisterRef("e1", 10)
	s.Close()
	assert.Empty(t, s.Active())
	_, ok := s.Ref("e1")
	assert.False(t, ok)
}
