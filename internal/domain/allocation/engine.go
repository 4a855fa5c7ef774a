// Package allocation is the orchestrator of inpatient stays. It is the only
// component allowed to couple a bed status change to an admission state
// change: admit reserves the exact requested bed and opens the ledger entry
// in one transaction, discharge and cancel close the entry and release that
// same bed. Everything else in the system treats bed occupancy as read-only.
package allocation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/directory"
	"github.com/hms/hms/internal/domain/admission"
	"github.com/hms/hms/internal/domain/bed"
	"github.com/hms/hms/internal/domain/ward"
	"github.com/hms/hms/internal/platform/apperr"
)

// TxRunner executes fn atomically. The pg implementation opens a pgx
// transaction and threads it through the context so repositories join it.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// WardRegistry is the slice of the ward repository the engine reads.
type WardRegistry interface {
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*ward.Ward, error)
}

// BedRegistry covers bed lookup plus the reserve/release transitions only
// this engine may perform.
type BedRegistry interface {
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*bed.Bed, error)
	Reserve(ctx context.Context, tenantID string, id uuid.UUID) error
	Release(ctx context.Context, tenantID string, id uuid.UUID) error
}

type Engine struct {
	wards    WardRegistry
	beds     BedRegistry
	ledger   admission.Repository
	patients directory.PatientDirectory
	staff    directory.StaffDirectory
	tx       TxRunner
	log      zerolog.Logger
}

func NewEngine(wards WardRegistry, beds BedRegistry, ledger admission.Repository,
	patients directory.PatientDirectory, staff directory.StaffDirectory,
	tx TxRunner, log zerolog.Logger) *Engine {
	return &Engine{
		wards:    wards,
		beds:     beds,
		ledger:   ledger,
		patients: patients,
		staff:    staff,
		tx:       tx,
		log:      log,
	}
}

type AdmitRequest struct {
	PatientID           uuid.UUID      `json:"patient_id"`
	WardID              uuid.UUID      `json:"ward_id"`
	BedID               uuid.UUID      `json:"bed_id"`
	DoctorID            *uuid.UUID     `json:"doctor_id"`
	AdmissionType       admission.Type `json:"admission_type"`
	Diagnosis           string         `json:"diagnosis"`
	Notes               *string        `json:"notes"`
	ExpectedDischargeAt *time.Time     `json:"expected_discharge_at"`
}

// Admit validates the request against the registries and directories, then
// reserves the bed and creates the ACTIVE admission in one transaction. The
// reserve is a compare-and-swap on the bed's AVAILABLE status, so of any
// number of concurrent admits to the same bed exactly one wins and the rest
// fail Conflict("bed not available").
func (e *Engine) Admit(ctx context.Context, tenantID string, req AdmitRequest) (*admission.Admission, error) {
	if req.PatientID == uuid.Nil {
		return nil, apperr.InvalidArgument("patient_id is required")
	}
	if req.WardID == uuid.Nil {
		return nil, apperr.InvalidArgument("ward_id is required")
	}
	if req.BedID == uuid.Nil {
		return nil, apperr.InvalidArgument("bed_id is required")
	}
	if !req.AdmissionType.Valid() {
		return nil, apperr.InvalidArgument("invalid admission_type: %s", req.AdmissionType)
	}
	if strings.TrimSpace(req.Diagnosis) == "" {
		return nil, apperr.InvalidArgument("diagnosis is required")
	}

	exists, err := e.patients.PatientExists(ctx, tenantID, req.PatientID)
	if err != nil {
		return nil, apperr.Internal(err, "patient lookup")
	}
	if !exists {
		return nil, apperr.NotFound("patient %s not found", req.PatientID)
	}
	if req.DoctorID != nil {
		exists, err := e.staff.DoctorExists(ctx, tenantID, *req.DoctorID)
		if err != nil {
			return nil, apperr.Internal(err, "doctor lookup")
		}
		if !exists {
			return nil, apperr.NotFound("doctor %s not found", *req.DoctorID)
		}
	}

	w, err := e.wards.GetByID(ctx, tenantID, req.WardID)
	if err != nil {
		return nil, err
	}
	if !w.IsActive {
		return nil, apperr.NotFound("ward %s not found", req.WardID)
	}

	b, err := e.beds.GetByID(ctx, tenantID, req.BedID)
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, apperr.NotFound("bed %s not found", req.BedID)
	}
	if b.WardID != req.WardID {
		return nil, apperr.InvalidArgument("bed %s does not belong to ward %s", req.BedID, req.WardID)
	}
	if b.Status != bed.StatusAvailable {
		return nil, apperr.Conflict("bed not available")
	}

	a := &admission.Admission{
		TenantID:            tenantID,
		PatientID:           req.PatientID,
		WardID:              req.WardID,
		BedID:               req.BedID,
		DoctorID:            req.DoctorID,
		AdmissionType:       req.AdmissionType,
		Diagnosis:           strings.TrimSpace(req.Diagnosis),
		Notes:               req.Notes,
		AdmittedAt:          time.Now().UTC(),
		ExpectedDischargeAt: req.ExpectedDischargeAt,
	}

	// The CAS inside Reserve is the authoritative guard; the status check
	// above only produces a friendlier error without burning a transaction.
	err = e.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := e.beds.Reserve(ctx, tenantID, req.BedID); err != nil {
			return err
		}
		return e.ledger.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Str("tenant_id", tenantID).
		Str("admission_id", a.ID.String()).
		Str("bed_id", req.BedID.String()).
		Str("ward_id", req.WardID.String()).
		Msg("patient admitted")
	return a, nil
}

// Discharge closes the admission and releases exactly the bed it holds.
func (e *Engine) Discharge(ctx context.Context, tenantID string, id uuid.UUID, summary string, followUp *string) (*admission.Admission, error) {
	if strings.TrimSpace(summary) == "" {
		return nil, apperr.InvalidArgument("discharge_summary is required")
	}

	var a *admission.Admission
	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		a, err = e.ledger.MarkDischarged(ctx, tenantID, id, strings.TrimSpace(summary), followUp)
		if err != nil {
			return err
		}
		return e.beds.Release(ctx, tenantID, a.BedID)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Str("tenant_id", tenantID).
		Str("admission_id", id.String()).
		Str("bed_id", a.BedID.String()).
		Msg("patient discharged")
	return a, nil
}

// Cancel marks the admission CANCELLED and releases its bed. The record is
// retained for audit, not deleted.
func (e *Engine) Cancel(ctx context.Context, tenantID string, id uuid.UUID) error {
	var a *admission.Admission
	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		a, err = e.ledger.MarkCancelled(ctx, tenantID, id)
		if err != nil {
			return err
		}
		return e.beds.Release(ctx, tenantID, a.BedID)
	})
	if err != nil {
		return err
	}

	e.log.Info().
		Str("tenant_id", tenantID).
		Str("admission_id", id.String()).
		Str("bed_id", a.BedID.String()).
		Msg("admission cancelled")
	return nil
}

// Update patches informational fields on an ACTIVE admission. Bed state is
// never touched here.
func (e *Engine) Update(ctx context.Context, tenantID string, id uuid.UUID, patch admission.Patch) (*admission.Admission, error) {
	if patch.Diagnosis != nil && strings.TrimSpace(*patch.Diagnosis) == "" {
		return nil, apperr.InvalidArgument("diagnosis must not be empty")
	}
	if patch.DoctorID != nil {
		exists, err := e.staff.DoctorExists(ctx, tenantID, *patch.DoctorID)
		if err != nil {
			return nil, apperr.Internal(err, "doctor lookup")
		}
		if !exists {
			return nil, apperr.NotFound("doctor %s not found", *patch.DoctorID)
		}
	}
	return e.ledger.UpdateFields(ctx, tenantID, id, patch)
}

func (e *Engine) Get(ctx context.Context, tenantID string, id uuid.UUID) (*admission.Admission, error) {
	return e.ledger.GetByID(ctx, tenantID, id)
}

func (e *Engine) List(ctx context.Context, tenantID string, f admission.Filter, limit, offset int) ([]*admission.Admission, int, error) {
	if f.State != "" && !f.State.Valid() {
		return nil, 0, apperr.InvalidArgument("invalid state: %s", f.State)
	}
	return e.ledger.List(ctx, tenantID, f, limit, offset)
}
