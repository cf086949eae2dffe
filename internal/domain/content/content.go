package content

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("content item not found")

// Item is one editable value on a public page, keyed by (page, section, key).
type Item struct {
	Page      string    `json:"page"`
	Section   string    `json:"section"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy *string   `json:"updated_by,omitempty"`
}

type UpsertRequest struct {
	Page    string `json:"page" binding:"required,min=1,max=64"`
	Section string `json:"section" binding:"required,min=1,max=64"`
	Key     string `json:"key" binding:"required,min=1,max=64"`
	Value   string `json:"value" binding:"max=20000"`
}

// Sections groups a page's items as section -> key -> value, the shape page renderers consume.
func Sections(items []Item) map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, it := range items {
		sec, ok := out[it.Section]
		if !ok {
			sec = make(map[string]string)
			out[it.Section] = sec
		}
		sec[it.Key] = it.Value
	}
	return out
}
