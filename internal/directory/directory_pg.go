package directory

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

type pgDirectory struct {
	pool *pgxpool.Pool
}

// NewPG returns directories backed by the patient and staff tables.
func NewPG(pool *pgxpool.Pool) (PatientDirectory, StaffDirectory) {
	d := &pgDirectory{pool: pool}
	return d, d
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (d *pgDirectory) conn(ctx context.Context) rowQuerier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return d.pool
}

func (d *pgDirectory) PatientExists(ctx context.Context, tenantID string, patientID uuid.UUID) (bool, error) {
	var found bool
	err := d.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patient WHERE id = $1 AND tenant_id = $2 AND is_active)`,
		patientID, tenantID).Scan(&found)
	return found, err
}

func (d *pgDirectory) DoctorExists(ctx context.Context, tenantID string, doctorID uuid.UUID) (bool, error) {
	var found bool
	err := d.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM staff WHERE id = $1 AND tenant_id = $2 AND is_active)`,
		doctorID, tenantID).Scan(&found)
	return found, err
}
