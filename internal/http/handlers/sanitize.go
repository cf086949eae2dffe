package handlers

import (
	"github.com/geocoder89/fellowship/internal/domain/contact"
	"github.com/geocoder89/fellowship/internal/domain/event"
	"github.com/geocoder89/fellowship/internal/security"
)

func sanitizeEvent(req event.CreateEventRequest) event.CreateEventRequest {
	req.Title = security.SanitizePlain(req.Title)
	req.Location = security.SanitizePlain(req.Location)
	req.Description = security.SanitizeContent(req.Description)
	return req
}

func sanitizeContact(req contact.CreateRequest) contact.CreateRequest {
	req.FirstName = security.SanitizePlain(req.FirstName)
	req.LastName = security.SanitizePlain(req.LastName)
	req.Phone = security.SanitizePlain(req.Phone)
	req.Message = security.SanitizePlain(req.Message)

	interests := make([]string, 0, len(req.Interests))
	for _, in := range req.Interests {
		if v := security.SanitizePlain(in); v != "" {
			interests = append(interests, v)
		}
	}
	req.Interests = interests

	return req
}

func sanitizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	s := security.SanitizePlain(*v)
	return &s
}
