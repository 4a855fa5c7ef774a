package occupancy

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

type sourcePG struct {
	pool *pgxpool.Pool
}

func NewSource(pool *pgxpool.Pool) Source {
	return &sourcePG{pool: pool}
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (s *sourcePG) conn(ctx context.Context) rowQuerier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.pool
}

// One statement so all counts come from the same snapshot.
func (s *sourcePG) Counts(ctx context.Context, tenantID string) (WardStats, BedStats, error) {
	var w WardStats
	var b BedStats
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM ward WHERE tenant_id = $1 AND is_active),
			count(*),
			count(*) FILTER (WHERE status = 'AVAILABLE'),
			count(*) FILTER (WHERE status = 'OCCUPIED'),
			count(*) FILTER (WHERE status = 'MAINTENANCE'),
			count(*) FILTER (WHERE status = 'RESERVED')
		FROM bed
		WHERE tenant_id = $1 AND is_active`,
		tenantID,
	).Scan(&w.Total, &b.Total, &b.Available, &b.Occupied, &b.Maintenance, &b.Reserved)
	if err != nil {
		return WardStats{}, BedStats{}, fmt.Errorf("count occupancy: %w", err)
	}
	return w, b, nil
}
