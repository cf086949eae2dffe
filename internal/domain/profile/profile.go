package profile

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("profile not found")

type Profile struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Role              Role      `json:"role"`
	Nickname          *string   `json:"nickname,omitempty"`
	CanComment        bool      `json:"can_comment"`
	Gender            *string   `json:"gender,omitempty"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// UpdateSelfRequest carries the fields a member may change on their own profile.
// Role and can_comment are deliberately absent; only admins change those.
type UpdateSelfRequest struct {
	Nickname          *string `json:"nickname" binding:"omitempty,min=1,max=60"`
	Gender            *string `json:"gender" binding:"omitempty,oneof=male female"`
	ProfilePictureURL *string `json:"profile_picture_url" binding:"omitempty,url,max=2048"`
}

func (r UpdateSelfRequest) Empty() bool {
	return r.Nickname == nil && r.Gender == nil && r.ProfilePictureURL == nil
}

type UpdateRoleRequest struct {
	UserID string `json:"userId" binding:"required,uuid"`
	Role   string `json:"role" binding:"required,role"`
}

type UpdatePermissionRequest struct {
	UserID     string `json:"userId" binding:"required,uuid"`
	CanComment *bool  `json:"can_comment" binding:"required"`
}

type DeleteUserRequest struct {
	UserID        string `json:"userId" binding:"required,uuid"`
	AdminPassword string `json:"adminPassword" binding:"required"`
}
