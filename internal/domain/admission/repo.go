package admission

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts an ACTIVE admission.
	Create(ctx context.Context, a *Admission) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*Admission, error)
	List(ctx context.Context, tenantID string, f Filter, limit, offset int) ([]*Admission, int, error)

	// UpdateFields patches informational fields while the admission is
	// ACTIVE; a terminal admission fails Conflict.
	UpdateFields(ctx context.Context, tenantID string, id uuid.UUID, patch Patch) (*Admission, error)

	// MarkDischarged and MarkCancelled move an ACTIVE admission to its
	// terminal state. Both fail Conflict when called on an admission that is
	// already terminal, so a double discharge never applies twice.
	MarkDischarged(ctx context.Context, tenantID string, id uuid.UUID, summary string, followUp *string) (*Admission, error)
	MarkCancelled(ctx context.Context, tenantID string, id uuid.UUID) (*Admission, error)
}
