package ward

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const wardCols = `id, tenant_id, name, description, capacity, location, is_active, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, w *Ward) error {
	w.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO ward (id, tenant_id, name, description, capacity, location)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING is_active, created_at, updated_at`,
		w.ID, w.TenantID, w.Name, w.Description, w.Capacity, w.Location,
	).Scan(&w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return apperr.Internal(err, "create ward")
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*Ward, error) {
	w, err := scanWard(r.conn(ctx).QueryRow(ctx,
		`SELECT `+wardCols+` FROM ward WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("ward %s not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "get ward")
	}
	return w, nil
}

func (r *repoPG) Update(ctx context.Context, w *Ward) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE ward SET name=$3, description=$4, capacity=$5, location=$6, updated_at=NOW()
		WHERE id = $1 AND tenant_id = $2`,
		w.ID, w.TenantID, w.Name, w.Description, w.Capacity, w.Location,
	)
	if err != nil {
		return apperr.Internal(err, "update ward")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("ward %s not found", w.ID)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, tenantID string, f Filter, limit, offset int) ([]*Ward, int, error) {
	where := `tenant_id = $1`
	args := []interface{}{tenantID}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += ` AND (name ILIKE $2 OR location ILIKE $2)`
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where += ` AND is_active = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM ward WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Internal(err, "count wards")
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+wardCols+` FROM ward WHERE `+where+
			` ORDER BY name LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, apperr.Internal(err, "list wards")
	}
	defer rows.Close()

	var wards []*Ward
	for rows.Next() {
		w, err := scanWard(rows)
		if err != nil {
			return nil, 0, apperr.Internal(err, "scan ward")
		}
		wards = append(wards, w)
	}
	return wards, total, nil
}

// Deactivate checks for occupied beds and flips the flag in one statement so
// no admit can slip between the check and the write.
func (r *repoPG) Deactivate(ctx context.Context, tenantID string, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE ward SET is_active = false, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND is_active
		  AND NOT EXISTS (
			SELECT 1 FROM bed
			WHERE bed.ward_id = ward.id AND bed.tenant_id = ward.tenant_id
			  AND bed.status = 'OCCUPIED'
		  )`, id, tenantID)
	if err != nil {
		return apperr.Internal(err, "deactivate ward")
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Zero rows: distinguish a missing/inactive ward from occupied beds.
	w, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if !w.IsActive {
		return apperr.NotFound("ward %s not found", id)
	}
	return apperr.Conflict("ward has occupied beds")
}

func scanWard(row pgx.Row) (*Ward, error) {
	var w Ward
	err := row.Scan(&w.ID, &w.TenantID, &w.Name, &w.Description, &w.Capacity,
		&w.Location, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

