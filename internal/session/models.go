package session

import "time"

// Session is the server-side record a session cookie refers to
type Session struct {
	ID             string    `bson:"sessionId" json:"sessionId"`
	UserID         string    `bson:"userId" json:"userId"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
	LastAccessedAt time.Time `bson:"lastAccessedAt" json:"lastAccessedAt"`
	ExpiresAt      time.Time `bson:"expiresAt" json:"expiresAt"`
}

// ExpiredAt reports whether the session is no longer valid at now.
// A session expires at the exact instant of ExpiresAt.
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
