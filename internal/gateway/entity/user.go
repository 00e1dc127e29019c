package entity

import "strings"

// AnonymousUsername is recorded when an issue analysis arrives without a user.
const AnonymousUsername Username = "anonymous_user"

// MaxUsernameLen bounds the username column.
const MaxUsernameLen = 50

// Username identifies whose records a lookup or write belongs to.
type Username string

func NormalizeUsername(raw string) Username {
	return Username(strings.TrimSpace(raw))
}

func (u Username) String() string {
	return strings.TrimSpace(string(u))
}

func (u Username) IsZero() bool {
	return u.String() == ""
}

// OrAnonymous returns u, or AnonymousUsername when u is blank.
func (u Username) OrAnonymous() Username {
	if u.IsZero() {
		return AnonymousUsername
	}
	return NormalizeUsername(string(u))
}

// CoachUser is a coaching profile. PasswordHash never leaves the gateway.
type CoachUser struct {
	ID             int64    `json:"id"`
	Username       string   `json:"username"`
	PasswordHash   string   `json:"-"`
	PreferredSport Sport    `json:"preferredSport,omitempty"`
	Age            *int     `json:"age,omitempty"`
	Height         *int     `json:"height,omitempty"`
	Weight         *float64 `json:"weight,omitempty"`
	Gender         Gender   `json:"gender"`
	CreatedAt      int64    `json:"createdAt"`
	UpdatedAt      int64    `json:"updatedAt"`
}

// Account is a plain login account with a unique username and email.
type Account struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}
