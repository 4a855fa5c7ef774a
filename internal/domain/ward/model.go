// Package ward owns ward definitions: named groupings of beds with a
// declared capacity. Wards are never hard-deleted; deactivation is the only
// removal path, and it is refused while any bed in the ward is occupied.
package ward

import (
	"time"

	"github.com/google/uuid"
)

type Ward struct {
	ID          uuid.UUID `json:"id"`
	TenantID    string    `json:"-"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	// Capacity is the declared bed count. Informational only: it is not
	// reconciled against the number of beds actually registered.
	Capacity  int       `json:"capacity"`
	Location  *string   `json:"location,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateInput struct {
	Name        string  `json:"name"`
	Capacity    int     `json:"capacity"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
}

type Patch struct {
	Name        *string `json:"name"`
	Capacity    *int    `json:"capacity"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
}

type Filter struct {
	Search   string
	IsActive *bool
}
