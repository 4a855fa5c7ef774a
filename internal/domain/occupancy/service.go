package occupancy

import (
	"context"
	"math"
)

type Service struct {
	source Source
}

func NewService(source Source) *Service {
	return &Service{source: source}
}

func (s *Service) Stats(ctx context.Context, tenantID string) (*Stats, error) {
	wards, beds, err := s.source.Counts(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := &Stats{Wards: wards, Beds: beds}
	if beds.Total > 0 {
		rate := float64(beds.Occupied) / float64(beds.Total) * 100
		out.OccupancyRate = math.Round(rate*100) / 100
	}
	return out, nil
}
