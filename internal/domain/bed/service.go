package bed

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/ward"
	"github.com/hms/hms/internal/platform/apperr"
)

// WardRegistry is the slice of the ward repository the bed service needs to
// validate ward references.
type WardRegistry interface {
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*ward.Ward, error)
}

type Service struct {
	repo  Repository
	wards WardRegistry
}

func NewService(repo Repository, wards WardRegistry) *Service {
	return &Service{repo: repo, wards: wards}
}

func (s *Service) Create(ctx context.Context, tenantID string, in CreateInput) (*Bed, error) {
	number := strings.TrimSpace(in.BedNumber)
	if number == "" {
		return nil, apperr.InvalidArgument("bed_number is required")
	}
	if in.WardID == uuid.Nil {
		return nil, apperr.InvalidArgument("ward_id is required")
	}
	status := in.Status
	if status == "" {
		status = StatusAvailable
	}
	if !status.Valid() {
		return nil, apperr.InvalidArgument("invalid status: %s", status)
	}
	if status == StatusOccupied {
		return nil, apperr.InvalidArgument("a bed cannot be created occupied")
	}

	w, err := s.wards.GetByID(ctx, tenantID, in.WardID)
	if err != nil {
		return nil, err
	}
	if !w.IsActive {
		return nil, apperr.NotFound("ward %s not found", in.WardID)
	}

	b := &Bed{
		TenantID:  tenantID,
		WardID:    in.WardID,
		BedNumber: number,
		Status:    status,
		Notes:     in.Notes,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) Get(ctx context.Context, tenantID string, id uuid.UUID) (*Bed, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// SetStatus performs an administrative transition. OCCUPIED is reserved for
// the allocation engine: requesting it directly is a caller error, and a bed
// that is currently occupied cannot be moved at all.
func (s *Service) SetStatus(ctx context.Context, tenantID string, id uuid.UUID, status Status, notes *string) (*Bed, error) {
	if !status.Valid() {
		return nil, apperr.InvalidArgument("invalid status: %s", status)
	}
	if status == StatusOccupied {
		return nil, apperr.InvalidArgument("beds become occupied only through admission")
	}
	return s.repo.SetStatus(ctx, tenantID, id, status, notes)
}

func (s *Service) List(ctx context.Context, tenantID string, f Filter, limit, offset int) ([]*Bed, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperr.InvalidArgument("invalid status: %s", f.Status)
	}
	return s.repo.List(ctx, tenantID, f, limit, offset)
}

func (s *Service) ListAvailable(ctx context.Context, tenantID string, wardID *uuid.UUID) ([]*Bed, error) {
	return s.repo.ListAvailable(ctx, tenantID, wardID)
}
