package models

// Profile is the per-user document created at sign-up.
type Profile struct {
	UID       string  `json:"uid"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	CreatedAt Instant `json:"createdAt"`
}

// Session identifies the signed-in user behind a request.
type Session struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	Email     string  `json:"email"`
	CreatedAt Instant `json:"createdAt"`
	ExpiresAt Instant `json:"expiresAt"`
}

// SessionEvent reports a sign-in or sign-out. A signed-out event carries the
// user that left; listeners treat it as "no user".
type SessionEvent struct {
	UserID   string  `json:"userId"`
	Email    string  `json:"email"`
	SignedIn bool    `json:"signedIn"`
	At       Instant `json:"at"`
}
