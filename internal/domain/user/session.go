package user

import (
	"errors"
	"time"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token revoked")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrRefreshTokenMismatch = errors.New("refresh token hash mismatch")
)

// RefreshToken is the persisted half of a session. Only the HMAC of the raw token is stored.
// Rotation keeps SessionID, so every row of one sign-in shares it.
type RefreshToken struct {
	ID         string
	SessionID  string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *string
	CreatedAt  time.Time
}

// CheckPresented validates a stored row against the hash of the token a client presented.
func (t RefreshToken) CheckPresented(hash string, now time.Time) error {
	switch {
	case t.RevokedAt != nil:
		return ErrRefreshTokenRevoked
	case now.After(t.ExpiresAt):
		return ErrRefreshTokenExpired
	case t.TokenHash != hash:
		return ErrRefreshTokenMismatch
	}
	return nil
}
