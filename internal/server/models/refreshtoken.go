package models

import "time"

// DeviceInfo is optional metadata describing the client a session was
// opened from.
type DeviceInfo struct {
	UserAgent string `json:"user_agent,omitempty" bson:"userAgent,omitempty"`
	IP        string `json:"ip,omitempty" bson:"ip,omitempty"`
}

// RefreshToken is a persisted refresh session. Only the SHA-256 digest of the
// opaque token is stored.
type RefreshToken struct {
	ID         string     `bson:"_id"`
	UserID     string     `bson:"userId"`
	TokenHash  string     `bson:"tokenHash"`
	DeviceInfo DeviceInfo `bson:"deviceInfo"`
	ExpiresAt  time.Time  `bson:"expiresAt"`
	CreatedAt  time.Time  `bson:"createdAt"`
}

// Expired reports whether the token is no longer usable at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
