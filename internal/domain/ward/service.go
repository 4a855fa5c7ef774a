package ward

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, tenantID string, in CreateInput) (*Ward, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.InvalidArgument("name is required")
	}
	if in.Capacity < 0 {
		return nil, apperr.InvalidArgument("capacity must not be negative")
	}
	w := &Ward{
		TenantID:    tenantID,
		Name:        name,
		Description: in.Description,
		Capacity:    in.Capacity,
		Location:    in.Location,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) Get(ctx context.Context, tenantID string, id uuid.UUID) (*Ward, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// Update applies the patch to an active ward. Inactive wards are treated as
// removed and report NotFound.
func (s *Service) Update(ctx context.Context, tenantID string, id uuid.UUID, patch Patch) (*Ward, error) {
	w, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !w.IsActive {
		return nil, apperr.NotFound("ward %s not found", id)
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.InvalidArgument("name must not be empty")
		}
		w.Name = name
	}
	if patch.Capacity != nil {
		if *patch.Capacity < 0 {
			return nil, apperr.InvalidArgument("capacity must not be negative")
		}
		w.Capacity = *patch.Capacity
	}
	if patch.Location != nil {
		w.Location = patch.Location
	}
	if patch.Description != nil {
		w.Description = patch.Description
	}
	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) List(ctx context.Context, tenantID string, f Filter, limit, offset int) ([]*Ward, int, error) {
	return s.repo.List(ctx, tenantID, f, limit, offset)
}

func (s *Service) Deactivate(ctx context.Context, tenantID string, id uuid.UUID) error {
	return s.repo.Deactivate(ctx, tenantID, id)
}
