package bed

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

const bedCols = `id, tenant_id, ward_id, bed_number, status, notes, is_active, created_at, updated_at`

const uniqueViolation = "23505"

func (r *repoPG) Create(ctx context.Context, b *Bed) error {
	b.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO bed (id, tenant_id, ward_id, bed_number, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING is_active, created_at, updated_at`,
		b.ID, b.TenantID, b.WardID, b.BedNumber, b.Status, b.Notes,
	).Scan(&b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.Conflict("bed number %s already exists in ward", b.BedNumber)
		}
		return apperr.Internal(err, "create bed")
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*Bed, error) {
	b, err := scanBed(r.conn(ctx).QueryRow(ctx,
		`SELECT `+bedCols+` FROM bed WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("bed %s not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "get bed")
	}
	return b, nil
}

func (r *repoPG) List(ctx context.Context, tenantID string, f Filter, limit, offset int) ([]*Bed, int, error) {
	where := `tenant_id = $1`
	args := []interface{}{tenantID}
	if f.WardID != nil {
		args = append(args, *f.WardID)
		where += ` AND ward_id = $` + strconv.Itoa(len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += ` AND bed_number ILIKE $` + strconv.Itoa(len(args))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where += ` AND is_active = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bed WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Internal(err, "count beds")
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+bedCols+` FROM bed WHERE `+where+
			` ORDER BY bed_number LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, apperr.Internal(err, "list beds")
	}
	defer rows.Close()

	var beds []*Bed
	for rows.Next() {
		b, err := scanBed(rows)
		if err != nil {
			return nil, 0, apperr.Internal(err, "scan bed")
		}
		beds = append(beds, b)
	}
	return beds, total, nil
}

func (r *repoPG) ListAvailable(ctx context.Context, tenantID string, wardID *uuid.UUID) ([]*Bed, error) {
	query := `SELECT ` + bedCols + ` FROM bed WHERE tenant_id = $1 AND status = 'AVAILABLE' AND is_active`
	args := []interface{}{tenantID}
	if wardID != nil {
		args = append(args, *wardID)
		query += ` AND ward_id = $2`
	}
	query += ` ORDER BY bed_number`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal(err, "list available beds")
	}
	defer rows.Close()

	var beds []*Bed
	for rows.Next() {
		b, err := scanBed(rows)
		if err != nil {
			return nil, apperr.Internal(err, "scan bed")
		}
		beds = append(beds, b)
	}
	return beds, nil
}

// SetStatus writes the new status only if the bed is not OCCUPIED, so the
// check and the transition are one statement. By the occupancy invariant an
// OCCUPIED bed is bound to an active admission and may only be released by
// the allocation engine.
func (r *repoPG) SetStatus(ctx context.Context, tenantID string, id uuid.UUID, status Status, notes *string) (*Bed, error) {
	b, err := scanBed(r.conn(ctx).QueryRow(ctx, `
		UPDATE bed SET status = $3, notes = COALESCE($4, notes), updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND status <> 'OCCUPIED'
		RETURNING `+bedCols, id, tenantID, status, notes))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Internal(err, "set bed status")
	}

	// Zero rows: either the bed does not exist or it is occupied.
	if _, err := r.GetByID(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return nil, apperr.Conflict("bed is occupied by an active admission")
}

func (r *repoPG) Reserve(ctx context.Context, tenantID string, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bed SET status = 'OCCUPIED', updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND is_active AND status = 'AVAILABLE'
		  AND EXISTS (
			SELECT 1 FROM ward
			WHERE ward.id = bed.ward_id AND ward.tenant_id = bed.tenant_id AND ward.is_active
		  )`, id, tenantID)
	if err != nil {
		return apperr.Internal(err, "reserve bed")
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("bed not available")
	}
	return nil
}

func (r *repoPG) Release(ctx context.Context, tenantID string, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bed SET status = 'AVAILABLE', updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND status = 'OCCUPIED'`, id, tenantID)
	if err != nil {
		return apperr.Internal(err, "release bed")
	}
	if tag.RowsAffected() == 0 {
		// The admission said this bed was occupied; disagreeing state is a
		// broken invariant, not a caller error.
		return apperr.Internal(nil, "bed %s was not occupied on release", id)
	}
	return nil
}

func scanBed(row pgx.Row) (*Bed, error) {
	var b Bed
	err := row.Scan(&b.ID, &b.TenantID, &b.WardID, &b.BedNumber, &b.Status,
		&b.Notes, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
