package model

import "time"

// RefreshToken is a model of the persistency layer. The token value is an
// opaque random string, the client never learns anything else about it.
type RefreshToken struct {
	Token  string
	UserID string

	CreatedAt time.Time
}

// ExpiresWithin reports whether the token is still inside the validity
// window at the given instant. The comparison is strict: a token whose age
// equals the window is already expired.
func (t *RefreshToken) ExpiresWithin(window time.Duration, now time.Time) bool {
	return now.Sub(t.CreatedAt) < window
}
