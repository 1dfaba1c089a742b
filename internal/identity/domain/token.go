package domain

import "time"

// TokenPair is what the issue and refresh endpoints return: a short-lived
// RS256 access token plus the opaque refresh token that replaces it.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"` // always "Bearer"
	ExpiresIn    int64  `json:"expires_in"`           // seconds until access token expiry
}

// RefreshToken models the stored refresh token record. The opaque secret
// itself is never persisted; only its SHA-256 fingerprint is, so a
// database leak cannot be replayed into live sessions.
type RefreshToken struct {
	ID     string
	UserID string

	// TokenFingerprint is the base64url SHA-256 of the opaque secret.
	// Rotation swaps it atomically, which is what makes each secret
	// single-use.
	TokenFingerprint string

	// Claims is the custom-claim set granted at first issuance, carried
	// forward so every refresh reproduces the original grant.
	Claims map[string]any

	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the record has passed its expiry.
func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
