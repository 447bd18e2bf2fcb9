// Package model defines the finance domain types exchanged with the backend.
package model

// User is the profile returned by /users/me.
type User struct {
	ID                int        `json:"id"`
	Email             string     `json:"email"`
	FullName          *string    `json:"full_name,omitempty"`
	IsActive          bool       `json:"is_active"`
	IsSuperuser       bool       `json:"is_superuser"`
	PreferredCurrency string     `json:"preferred_currency"`
	CreatedAt         Timestamp  `json:"created_at"`
	UpdatedAt         *Timestamp `json:"updated_at,omitempty"`
}

// DisplayName returns the full name when set, otherwise the email.
func (u User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Email
}

// UserUpdate is a partial profile update; nil fields are left unchanged.
type UserUpdate struct {
	FullName          *string `json:"full_name,omitempty"`
	PreferredCurrency *string `json:"preferred_currency,omitempty"`
	Password          *string `json:"password,omitempty"`
}

// RegisterRequest carries the fields for account creation.
type RegisterRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	FullName          string `json:"full_name,omitempty"`
	PreferredCurrency string `json:"preferred_currency,omitempty"`
}

// Tokens is the credential pair returned by login and refresh.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}
