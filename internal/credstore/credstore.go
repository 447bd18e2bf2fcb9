// Package credstore persists session credentials and the cached user profile.
//
// The layout is three fixed keys: access_token, refresh_token and user. A new
// process opening the same store resumes the session from those keys alone.
package credstore

import (
	"errors"

	"github.com/aifinance/finctl/internal/model"
)

// Fixed storage keys.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// ErrEmptyAccessToken is returned by Save when no access token is given.
var ErrEmptyAccessToken = errors.New("credstore: access token is empty")

// Credentials is the persisted token pair. An empty RefreshToken means the
// backend did not issue one.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// HasRefreshToken reports whether a refresh token is present.
func (c Credentials) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// Store is the credential store contract. Load returns nil, nil when no
// session is stored. Clear on an empty store is a no-op.
type Store interface {
	Save(creds Credentials) error
	Load() (*Credentials, error)
	Clear() error
	SaveUser(u model.User) error
	LoadUser() (*model.User, error)
}
