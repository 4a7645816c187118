package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/efresco/internal/user"
)

func TestStorePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	s, err := Open(path)
	require.NoError(t, err)
	assert.Empty(t, s.Token())
	assert.Nil(t, s.User())

	require.NoError(t, s.Save("tok-123", &user.User{ID: 4, Name: "Ana", Roles: []string{user.RoleAdmin}}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", reopened.Token())
	require.NotNil(t, reopened.User())
	assert.Equal(t, int64(4), reopened.User().ID)
	assert.True(t, reopened.IsAdmin())

	id, err := reopened.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetToken("abc"))

	require.NoError(t, s.Clear())
	assert.Empty(t, s.Token())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, err = s.UserID()
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	// clearing twice is fine
	require.NoError(t, s.Clear())
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestUserIsCopied(t *testing.T) {
	s := NewMemory()
	u := &user.User{ID: 1, Name: "Juan"}
	require.NoError(t, s.SetUser(u))

	u.Name = "changed"
	assert.Equal(t, "Juan", s.User().Name)

	got := s.User()
	got.Name = "changed again"
	assert.Equal(t, "Juan", s.User().Name)
}

func TestExpired(t *testing.T) {
	now := time.Date(2025, 11, 23, 12, 0, 0, 0, time.UTC)
	sign := func(exp time.Time) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": 1, "exp": exp.Unix()})
		s, err := tok.SignedString([]byte("secret"))
		require.NoError(t, err)
		return s
	}

	s := NewMemory()
	assert.True(t, s.Expired(now), "no token")

	require.NoError(t, s.SetToken(sign(now.Add(time.Hour))))
	assert.False(t, s.Expired(now))

	require.NoError(t, s.SetToken(sign(now.Add(-time.Hour))))
	assert.True(t, s.Expired(now))

	require.NoError(t, s.SetToken("mock_token_for_offline_demo"))
	assert.False(t, s.Expired(now))
}
