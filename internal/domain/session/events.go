package session

import "time"

const (
	EventUserLoggedIn  = "UserLoggedIn"
	EventUserLoggedOut = "UserLoggedOut"
	EventUserUpdated   = "UserUpdated"
)

// UserLoggedIn is emitted when a token is accepted and stored
type UserLoggedIn struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	LoggedAt time.Time `json:"logged_at"`
}

// UserLoggedOut is emitted when the session and token are cleared
type UserLoggedOut struct {
	UserID   string    `json:"user_id"`
	LoggedAt time.Time `json:"logged_at"`
}

// UserUpdated is emitted when profile fields are merged into the session
type UserUpdated struct {
	UserID    string    `json:"user_id"`
	UpdatedAt time.Time `json:"updated_at"`
}
