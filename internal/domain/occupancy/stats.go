// Package occupancy aggregates ward and bed state into the dashboard
// snapshot: total counts per bed status plus an occupancy rate.
package occupancy

import "context"

type WardStats struct {
	Total int `json:"total"`
}

type BedStats struct {
	Total       int `json:"total"`
	Available   int `json:"available"`
	Occupied    int `json:"occupied"`
	Maintenance int `json:"maintenance"`
	Reserved    int `json:"reserved"`
}

type Stats struct {
	Wards         WardStats `json:"wards"`
	Beds          BedStats  `json:"beds"`
	OccupancyRate float64   `json:"occupancyRate"`
}

// Source produces the raw counts. Implementations must return the bed
// counts as a single consistent snapshot so the per-status counts sum
// to the total.
type Source interface {
	Counts(ctx context.Context, tenantID string) (WardStats, BedStats, error)
}
