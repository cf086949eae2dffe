package settings

import (
	"errors"
	"time"
)

// SingletonID is the only id the admin_settings table accepts.
const SingletonID = 1

var (
	ErrNotConfigured    = errors.New("admin password not configured")
	ErrPasswordMismatch = errors.New("admin password mismatch")
	ErrPasswordReused   = errors.New("admin password was used before")
)

type AdminSettings struct {
	ID                    int        `json:"-"`
	DeletePasswordHash    string     `json:"-"`
	PasswordSetDate       *time.Time `json:"password_set_date,omitempty"`
	PasswordHistoryHashes []string   `json:"-"`
}

func (s AdminSettings) HasPassword() bool {
	return s.DeletePasswordHash != ""
}

// Used reports whether digest matches the current hash or any previous one.
func (s AdminSettings) Used(digest string) bool {
	if digest == s.DeletePasswordHash {
		return true
	}
	for _, h := range s.PasswordHistoryHashes {
		if h == digest {
			return true
		}
	}
	return false
}

type SetPasswordRequest struct {
	NewPassword          string  `json:"newPassword" binding:"required,min=8,max=128"`
	CurrentAdminPassword *string `json:"currentAdminPassword"`
}
