package event

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event is a gathering listed on the public events page.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartAt     time.Time `json:"startAt"`
	Capacity    *int      `json:"capacity,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// with pointers if optional, it will be nil
type ListEventsFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

var ErrNotFound = errors.New("event not found")

type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required,min=3,max=120"`
	Description string    `json:"description" binding:"omitempty,max=2000"`
	Location    string    `json:"location" binding:"omitempty,min=2,max=120"`
	StartAt     time.Time `json:"startAt" binding:"required"`
	Capacity    *int      `json:"capacity" binding:"omitempty,min=1,max=50000"`
}

// full replacement payload
type UpdateEventRequest = CreateEventRequest

func NewFromCreateRequest(req CreateEventRequest) Event {
	now := time.Now().UTC()

	return Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartAt:     req.StartAt.UTC(),
		Capacity:    req.Capacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
