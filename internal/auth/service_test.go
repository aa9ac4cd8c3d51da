package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/ugc-backend/internal/apperr"
)

func newTestService() *Service {
	return NewService(Options{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Issuer:        "test",
	})
}

func TestIssueAndParseAccess(t *testing.T) {
	svc := newTestService()

	pair, err := svc.Issue("user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(60), pair.ExpiresIn)

	sub, err := svc.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestRefreshRoundTrip(t *testing.T) {
	svc := newTestService()
	pair, err := svc.Issue("user-1")
	require.NoError(t, err)

	fresh, err := svc.Refresh(pair.RefreshToken)
	require.NoError(t, err)

	sub, err := svc.ParseAccess(fresh.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc := newTestService()
	pair, err := svc.Issue("user-1")
	require.NoError(t, err)

	_, err = svc.Refresh(pair.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrAuth)

	_, err = svc.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func TestRefreshRejectsForeignSignature(t *testing.T) {
	other := NewService(Options{AccessSecret: "x", RefreshSecret: "y", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	pair, err := other.Issue("user-1")
	require.NoError(t, err)

	_, err = newTestService().Refresh(pair.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func TestRefreshRejectsExpired(t *testing.T) {
	svc := newTestService()
	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }
	pair, err := svc.Issue("user-1")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Refresh(pair.RefreshToken)
	require.ErrorIs(t, err, apperr.ErrAuth)
	assert.Contains(t, err.Error(), "expired")
}

func TestRefreshRequiresToken(t *testing.T) {
	_, err := newTestService().Refresh("")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = newTestService().Refresh("not-a-jwt")
	assert.ErrorIs(t, err, apperr.ErrAuth)
}
