package credstore

import (
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/aifinance/finctl/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func testUser() model.User {
	name := "Ada Lovelace"
	return model.User{
		ID:                7,
		Email:             "ada@example.com",
		FullName:          &name,
		IsActive:          true,
		PreferredCurrency: "EUR",
		CreatedAt:         model.Timestamp{Time: time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)},
	}
}

func stores(t *testing.T) map[string]Store {
	sq, _ := openTemp(t)
	return map[string]Store{
		"sqlite": sq,
		"memory": NewMemory(),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			logins := []Credentials{
				{AccessToken: "a1", RefreshToken: "r1"},
				{AccessToken: "a2", RefreshToken: "r2"},
				{AccessToken: "a3"},
				{AccessToken: "a4", RefreshToken: "r4"},
			}
			for _, creds := range logins {
				require.NoError(t, s.Save(creds))
				got, err := s.Load()
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, creds, *got)
			}
		})
	}
}

func TestLoadEmpty(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Load()
			require.NoError(t, err)
			assert.Nil(t, got)

			u, err := s.LoadUser()
			require.NoError(t, err)
			assert.Nil(t, u)
		})
	}
}

func TestClearIsIdempotent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Clear())

			require.NoError(t, s.Save(Credentials{AccessToken: "a", RefreshToken: "r"}))
			require.NoError(t, s.SaveUser(testUser()))
			require.NoError(t, s.Clear())
			require.NoError(t, s.Clear())

			got, err := s.Load()
			require.NoError(t, err)
			assert.Nil(t, got)
			u, err := s.LoadUser()
			require.NoError(t, err)
			assert.Nil(t, u)
		})
	}
}

func TestSaveRejectsEmptyAccessToken(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.Save(Credentials{RefreshToken: "r"}), ErrEmptyAccessToken)
		})
	}
}

func TestUserRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			want := testUser()
			require.NoError(t, s.SaveUser(want))
			got, err := s.LoadUser()
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, want, *got)
		})
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	s, path := openTemp(t)
	require.NoError(t, s.Save(Credentials{AccessToken: "access", RefreshToken: "refresh"}))
	require.NoError(t, s.SaveUser(testUser()))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	creds, err := reopened.Load()
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "access", creds.AccessToken)
	assert.Equal(t, "refresh", creds.RefreshToken)

	u, err := reopened.LoadUser()
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "ada@example.com", u.Email)
}

func TestMemoryKeysMatchLayout(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Save(Credentials{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, m.SaveUser(testUser()))

	keys := m.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{KeyAccessToken, KeyRefreshToken, KeyUser}, keys)
}
