package session

import (
	"golang.org/x/oauth2"
)

// User is the identity record returned by the platform at login. The fields
// are backend-defined; the client renders them but never validates them.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Credentials carries a login request. Email doubles as the username field
// for deployments that log in by username.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the authenticated state of the running client. There is exactly
// one Session per Store, and one Store per process.
//
// Err holds the last auth-operation failure message for UI display. It is
// never persisted.
type Session struct {
	User  *User         `json:"user"`
	Token *oauth2.Token `json:"token"`
	Err   string        `json:"-"`
}

// IsAuthenticated is always derived from token presence, never stored
// independently.
func (s Session) IsAuthenticated() bool {
	return s.Token != nil && s.Token.AccessToken != ""
}

// AccessToken returns the bearer credential, or "" when unauthenticated.
func (s Session) AccessToken() string {
	if s.Token == nil {
		return ""
	}
	return s.Token.AccessToken
}

// RefreshToken returns the refresh credential, or "" when absent.
func (s Session) RefreshToken() string {
	if s.Token == nil {
		return ""
	}
	return s.Token.RefreshToken
}
