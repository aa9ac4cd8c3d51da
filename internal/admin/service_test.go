package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/ugc-backend/internal/apperr"
)

func newTestAccounts() (*Service, *Sessions) {
	sessions := NewSessions("admin-secret", 24*time.Hour)
	return NewService(NewMemoryRepository(), sessions), sessions
}

func TestRegisterAndLogin(t *testing.T) {
	svc, sessions := newTestAccounts()
	ctx := context.Background()

	a, err := svc.Register(ctx, RegisterInput{FirstName: "Ada", LastName: "Root", Email: " Ada@Example.com ", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, a.Role)
	assert.Equal(t, "ada@example.com", a.Email)
	assert.NotEqual(t, "correct horse", string(a.PasswordHash))

	got, token, err := svc.Login(ctx, "ADA@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	id, err := sessions.VerifySession(token)
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)

	profile, err := svc.Profile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.FirstName)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestAccounts()
	ctx := context.Background()

	cases := []RegisterInput{
		{FirstName: "A", LastName: "B", Email: "not-an-email", Password: "long enough"},
		{FirstName: "A", LastName: "B", Email: "a@b.co", Password: "short"},
		{FirstName: "", LastName: "B", Email: "a@b.co", Password: "long enough"},
		{FirstName: "A", LastName: "B", Email: "a@b.co", Password: "long enough", Role: "owner"},
	}
	for _, in := range cases {
		_, err := svc.Register(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrValidation, in.Email)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestAccounts()
	ctx := context.Background()
	in := RegisterInput{FirstName: "A", LastName: "B", Email: "dup@b.co", Password: "long enough", Role: RoleModerator}

	_, err := svc.Register(ctx, in)
	require.NoError(t, err)
	_, err = svc.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestAccounts()
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{FirstName: "A", LastName: "B", Email: "a@b.co", Password: "long enough"})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "a@b.co", "wrong password")
	assert.ErrorIs(t, err, apperr.ErrAuth)
	_, _, err = svc.Login(ctx, "nobody@b.co", "long enough")
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func TestSessionExpiryAndTampering(t *testing.T) {
	sessions := NewSessions("admin-secret", time.Hour)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sessions.now = func() time.Time { return issued }

	token, err := sessions.Issue(Admin{ID: "admin-1", Role: RoleAdmin})
	require.NoError(t, err)

	_, err = NewSessions("other-secret", time.Hour).VerifySession(token)
	assert.ErrorIs(t, err, apperr.ErrAuth)

	sessions.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = sessions.VerifySession(token)
	assert.ErrorIs(t, err, apperr.ErrAuth)
}
