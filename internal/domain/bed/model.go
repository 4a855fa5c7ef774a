// Package bed owns the allocatable units inside wards. A bed's status is the
// occupancy half of the bed/admission invariant: OCCUPIED exactly when one
// active admission is bound to it. Administrative transitions (maintenance,
// reserved) never apply to an occupied bed.
package bed

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusOccupied    Status = "OCCUPIED"
	StatusMaintenance Status = "MAINTENANCE"
	StatusReserved    Status = "RESERVED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusMaintenance, StatusReserved:
		return true
	}
	return false
}

type Bed struct {
	ID       uuid.UUID `json:"id"`
	TenantID string    `json:"-"`
	// WardID is immutable after creation.
	WardID    uuid.UUID `json:"ward_id"`
	BedNumber string    `json:"bed_number"`
	Status    Status    `json:"status"`
	Notes     *string   `json:"notes,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateInput struct {
	WardID    uuid.UUID `json:"ward_id"`
	BedNumber string    `json:"bed_number"`
	Status    Status    `json:"status"`
	Notes     *string   `json:"notes"`
}

type Filter struct {
	WardID   *uuid.UUID
	Status   Status
	Search   string
	IsActive *bool
}
