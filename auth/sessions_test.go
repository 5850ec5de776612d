package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-archetype-api/models"
)

func testUser(id int, username, role string) *models.User {
	return &models.User{ID: id, Username: username, Role: role}
}

func TestSessionLifecycle(t *testing.T) {
	store := NewSessionStore()

	session := store.CreateSession(testUser(1, "alex", "user"))
	require.NotEmpty(t, session.ID)
	assert.Equal(t, 1, session.UserID)
	assert.Equal(t, "user", session.Role)

	got, exists := store.GetSession(session.ID)
	require.True(t, exists)
	assert.Equal(t, session.ID, got.ID)

	store.DeleteSession(session.ID)
	_, exists = store.GetSession(session.ID)
	assert.False(t, exists)
}

func TestExpiredSessionIsRejected(t *testing.T) {
	store := NewSessionStore()

	session := store.CreateSession(testUser(1, "alex", "user"))
	session.ExpiresAt = time.Now().Add(-time.Minute)

	_, exists := store.GetSession(session.ID)
	assert.False(t, exists)
}

func TestDeleteUserSessions(t *testing.T) {
	store := NewSessionStore()

	first := store.CreateSession(testUser(1, "alex", "user"))
	second := store.CreateSession(testUser(1, "alex", "user"))
	other := store.CreateSession(testUser(2, "sam", "admin"))

	store.DeleteUserSessions(1)

	_, exists := store.GetSession(first.ID)
	assert.False(t, exists)
	_, exists = store.GetSession(second.ID)
	assert.False(t, exists)
	_, exists = store.GetSession(other.ID)
	assert.True(t, exists, "other users keep their sessions")
}

func TestSessionPermissions(t *testing.T) {
	admin := &models.Session{UserID: 1, Role: "admin"}
	user := &models.Session{UserID: 2, Role: "user"}

	assert.True(t, admin.CanManageUsers())
	assert.False(t, user.CanManageUsers())
	assert.True(t, admin.CanSendInvites())
	assert.False(t, user.CanSendInvites())

	owned := &models.Assessment{ID: "a-1", UserID: 2}
	assert.True(t, user.CanViewAssessment(owned))
	assert.True(t, admin.CanViewAssessment(owned), "admins see everything")

	foreign := &models.Assessment{ID: "a-2", UserID: 3}
	assert.False(t, user.CanViewAssessment(foreign))
}
