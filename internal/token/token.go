// Package token reads claims from access tokens for display. Tokens are never
// verified here; the backend is the only authority on validity.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned for tokens without an exp claim.
var ErrNoExpiry = errors.New("token: no expiry claim")

// Info is what finctl shows about an access token.
type Info struct {
	Subject   string
	Type      string
	ExpiresAt time.Time
}

// Remaining returns the time left before expiry, never negative.
func (i Info) Remaining(now time.Time) time.Duration {
	d := i.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Expired reports whether the token has expired at now.
func (i Info) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

type claims struct {
	Type string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Inspect decodes a JWT without verifying its signature.
func Inspect(raw string) (Info, error) {
	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &c); err != nil {
		return Info{}, fmt.Errorf("token: parsing: %w", err)
	}
	if c.ExpiresAt == nil {
		return Info{Subject: c.Subject, Type: c.Type}, ErrNoExpiry
	}
	return Info{Subject: c.Subject, Type: c.Type, ExpiresAt: c.ExpiresAt.Time}, nil
}
