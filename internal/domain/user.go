package domain

import "encoding/json"

type User struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	FullName     string          `json:"full_name,omitempty"`
	UserMetadata json.RawMessage `json:"user_metadata,omitempty"`
	AppMetadata  json.RawMessage `json:"app_metadata,omitempty"`
}

// Session is the in-memory authenticated identity. User and AccessToken
// are either both set or the session does not exist; RefreshToken may be
// absent.
type Session struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// PersistedSession mirrors Session in the durable store. The three parts
// are stored under independent keys, so any of them can be missing on
// load; a session missing its user or access token is invalid.
type PersistedSession struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

// Valid reports whether the persisted state can seed a session. A refresh
// token alone is not enough.
func (p *PersistedSession) Valid() bool {
	return p != nil && p.AccessToken != "" && p.User != nil
}

type SessionState string

const (
	SessionStateUnauthenticated SessionState = "unauthenticated"
	SessionStateInitializing    SessionState = "initializing"
	SessionStateAuthenticated   SessionState = "authenticated"
	SessionStateRefreshing      SessionState = "refreshing"
)
