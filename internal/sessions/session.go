package sessions

import "time"

// Session is a server-side login session. Only LastAccessed changes after creation.
type Session struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Token        string    `bson:"token" json:"token"`
	UserID       string    `bson:"user_id" json:"user_id"`
	Username     string    `bson:"username" json:"username"`
	Email        string    `bson:"email" json:"email"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt    time.Time `bson:"expires_at" json:"expires_at"`
	LastAccessed time.Time `bson:"last_accessed" json:"last_accessed"`
}

// Identity is what the identity provider hands over after authenticating a user.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// SessionContext is the request context restored from a valid session.
type SessionContext struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Context returns the identity carried by the session.
func (s *Session) Context() SessionContext {
	return SessionContext{UserID: s.UserID, Username: s.Username, Email: s.Email}
}
