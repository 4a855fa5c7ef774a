package bed

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts the bed. A duplicate bed number within the same ward
	// fails Conflict.
	Create(ctx context.Context, b *Bed) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*Bed, error)
	List(ctx context.Context, tenantID string, f Filter, limit, offset int) ([]*Bed, int, error)
	ListAvailable(ctx context.Context, tenantID string, wardID *uuid.UUID) ([]*Bed, error)

	// SetStatus applies an administrative transition. It must not touch an
	// OCCUPIED bed (Conflict); releasing those is the allocation engine's job.
	SetStatus(ctx context.Context, tenantID string, id uuid.UUID, status Status, notes *string) (*Bed, error)

	// Reserve atomically moves an AVAILABLE bed in an active ward to
	// OCCUPIED. Exactly one concurrent caller can win; the rest fail
	// Conflict("bed not available"). Engine use only.
	Reserve(ctx context.Context, tenantID string, id uuid.UUID) error
	// Release moves an OCCUPIED bed back to AVAILABLE. Engine use only.
	Release(ctx context.Context, tenantID string, id uuid.UUID) error
}
