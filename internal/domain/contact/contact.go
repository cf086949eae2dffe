package contact

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("contact submission not found")

type Submission struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Interests []string  `json:"interests"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateRequest struct {
	FirstName string   `json:"first_name" binding:"required,min=1,max=80"`
	LastName  string   `json:"last_name" binding:"required,min=1,max=80"`
	Email     string   `json:"email" binding:"required,email,max=254"`
	Phone     string   `json:"phone" binding:"omitempty,max=32"`
	Interests []string `json:"interests" binding:"omitempty,max=10,dive,min=1,max=64"`
	Message   string   `json:"message" binding:"required,min=1,max=5000"`
}

type ListFilter struct {
	UnreadOnly bool
	Limit      int
}
