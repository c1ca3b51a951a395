package resource

import (
	"errors"
	"time"
)

// Resource is a catalog entry.
type Resource struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ErrResourceNotFound is returned when no resource matches the given ID.
var ErrResourceNotFound = errors.New("resource: not found")
