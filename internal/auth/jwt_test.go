package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubhayu-dev/Sanrakshan/config"
)

func newTestManager(ttl time.Duration) *Manager {
	return NewManager(&config.AuthConfig{
		JWTSecret: "test-secret",
		TokenTTL:  ttl,
		Issuer:    "sanrakshan",
	})
}

func TestGenerateAndParse(t *testing.T) {
	mgr := newTestManager(time.Hour)

	token, err := mgr.Generate(Principal{ID: "principal-1", IsStaff: false})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := mgr.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "principal-1", parsed.ID)
	assert.False(t, parsed.IsStaff)
}

func TestParse_StaffFlagRoundTrips(t *testing.T) {
	mgr := newTestManager(time.Hour)

	token, err := mgr.Generate(Principal{ID: "staff-1", IsStaff: true})
	require.NoError(t, err)

	parsed, err := mgr.Parse(token)
	require.NoError(t, err)
	assert.True(t, parsed.IsStaff)
}

func TestParse_Expired(t *testing.T) {
	mgr := newTestManager(-time.Minute)

	token, err := mgr.Generate(Principal{ID: "principal-1"})
	require.NoError(t, err)

	_, err = mgr.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParse_WrongSecret(t *testing.T) {
	mgr := newTestManager(time.Hour)
	other := NewManager(&config.AuthConfig{JWTSecret: "other-secret", TokenTTL: time.Hour, Issuer: "sanrakshan"})

	token, err := other.Generate(Principal{ID: "principal-1"})
	require.NoError(t, err)

	_, err = mgr.Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParse_Garbage(t *testing.T) {
	mgr := newTestManager(time.Hour)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := mgr.Parse(token)
		assert.ErrorIs(t, err, ErrTokenInvalid, "token %q", token)
	}
}

func TestParse_MissingPrincipal(t *testing.T) {
	mgr := newTestManager(time.Hour)

	token, err := mgr.Generate(Principal{})
	require.NoError(t, err)

	_, err = mgr.Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
