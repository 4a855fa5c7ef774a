package ward

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, w *Ward) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*Ward, error)
	Update(ctx context.Context, w *Ward) error
	List(ctx context.Context, tenantID string, f Filter, limit, offset int) ([]*Ward, int, error)
	// Deactivate flips is_active off. It fails Conflict while the ward owns
	// any OCCUPIED bed, and NotFound if the ward is missing or already
	// inactive.
	Deactivate(ctx context.Context, tenantID string, id uuid.UUID) error
}
