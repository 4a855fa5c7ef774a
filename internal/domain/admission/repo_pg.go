package admission

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

const admissionCols = `id, tenant_id, patient_id, ward_id, bed_id, doctor_id,
	admission_type, diagnosis, notes, admitted_at, expected_discharge_at,
	state, discharge_summary, follow_up_instructions, discharged_at,
	created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, a *Admission) error {
	a.ID = uuid.New()
	a.State = StateActive
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO admission (
			id, tenant_id, patient_id, ward_id, bed_id, doctor_id,
			admission_type, diagnosis, notes, admitted_at, expected_discharge_at, state
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,'ACTIVE')
		RETURNING admitted_at, created_at, updated_at`,
		a.ID, a.TenantID, a.PatientID, a.WardID, a.BedID, a.DoctorID,
		a.AdmissionType, a.Diagnosis, a.Notes, a.AdmittedAt, a.ExpectedDischargeAt,
	).Scan(&a.AdmittedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Partial unique index on (bed_id) WHERE state='ACTIVE': the
			// storage backstop behind the reserve CAS.
			return apperr.Conflict("bed not available")
		}
		return apperr.Internal(err, "create admission")
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*Admission, error) {
	a, err := scanAdmission(r.conn(ctx).QueryRow(ctx,
		`SELECT `+admissionCols+` FROM admission WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("admission %s not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "get admission")
	}
	return a, nil
}

func (r *repoPG) List(ctx context.Context, tenantID string, f Filter, limit, offset int) ([]*Admission, int, error) {
	where := `tenant_id = $1`
	args := []interface{}{tenantID}
	if f.State != "" {
		args = append(args, f.State)
		where += ` AND state = $` + strconv.Itoa(len(args))
	}
	if f.WardID != nil {
		args = append(args, *f.WardID)
		where += ` AND ward_id = $` + strconv.Itoa(len(args))
	}
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		where += ` AND patient_id = $` + strconv.Itoa(len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += ` AND diagnosis ILIKE $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM admission WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Internal(err, "count admissions")
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+admissionCols+` FROM admission WHERE `+where+
			` ORDER BY admitted_at DESC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, apperr.Internal(err, "list admissions")
	}
	defer rows.Close()

	var admissions []*Admission
	for rows.Next() {
		a, err := scanAdmission(rows)
		if err != nil {
			return nil, 0, apperr.Internal(err, "scan admission")
		}
		admissions = append(admissions, a)
	}
	return admissions, total, nil
}

func (r *repoPG) UpdateFields(ctx context.Context, tenantID string, id uuid.UUID, patch Patch) (*Admission, error) {
	a, err := scanAdmission(r.conn(ctx).QueryRow(ctx, `
		UPDATE admission SET
			doctor_id = COALESCE($3, doctor_id),
			diagnosis = COALESCE($4, diagnosis),
			notes = COALESCE($5, notes),
			expected_discharge_at = COALESCE($6, expected_discharge_at),
			updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND state = 'ACTIVE'
		RETURNING `+admissionCols,
		id, tenantID, patch.DoctorID, patch.Diagnosis, patch.Notes, patch.ExpectedDischargeAt))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Internal(err, "update admission")
	}
	return nil, r.notActive(ctx, tenantID, id)
}

func (r *repoPG) MarkDischarged(ctx context.Context, tenantID string, id uuid.UUID, summary string, followUp *string) (*Admission, error) {
	a, err := scanAdmission(r.conn(ctx).QueryRow(ctx, `
		UPDATE admission SET
			state = 'DISCHARGED',
			discharge_summary = $3,
			follow_up_instructions = $4,
			discharged_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND state = 'ACTIVE'
		RETURNING `+admissionCols,
		id, tenantID, summary, followUp))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Internal(err, "discharge admission")
	}
	return nil, r.notActive(ctx, tenantID, id)
}

func (r *repoPG) MarkCancelled(ctx context.Context, tenantID string, id uuid.UUID) (*Admission, error) {
	a, err := scanAdmission(r.conn(ctx).QueryRow(ctx, `
		UPDATE admission SET state = 'CANCELLED', updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND state = 'ACTIVE'
		RETURNING `+admissionCols, id, tenantID))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Internal(err, "cancel admission")
	}
	return nil, r.notActive(ctx, tenantID, id)
}

// notActive reports why a conditional state='ACTIVE' update matched nothing:
// the admission is missing (NotFound) or already terminal (Conflict).
func (r *repoPG) notActive(ctx context.Context, tenantID string, id uuid.UUID) error {
	a, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	return apperr.Conflict("admission is %s", a.State)
}

func scanAdmission(row pgx.Row) (*Admission, error) {
	var a Admission
	err := row.Scan(&a.ID, &a.TenantID, &a.PatientID, &a.WardID, &a.BedID, &a.DoctorID,
		&a.AdmissionType, &a.Diagnosis, &a.Notes, &a.AdmittedAt, &a.ExpectedDischargeAt,
		&a.State, &a.DischargeSummary, &a.FollowUpInstructions, &a.DischargedAt,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
