// Package session owns the durable credential state of a signed-in user:
// the access/refresh token pair and minimal identity. It is the single
// source of truth for "am I logged in": every other package reads the
// session through Store and never mutates it directly.
package session

// Session is the authoritative credential pair plus minimal user identity.
// At most one Session value is authoritative at a time; it is replaced
// atomically by the refresh protocol and destroyed only by logout or
// invalidation.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
}

// Valid reports whether the session carries a usable credential pair.
func (s Session) Valid() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}
