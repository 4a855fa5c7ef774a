// Package directory exposes the patient and staff lookups the allocation
// engine needs from the wider hospital system. Admissions only ever ask
// "does this person exist in this tenant", so the surface is two existence
// checks rather than full record access.
package directory

import (
	"context"

	"github.com/google/uuid"
)

type PatientDirectory interface {
	PatientExists(ctx context.Context, tenantID string, patientID uuid.UUID) (bool, error)
}

type StaffDirectory interface {
	DoctorExists(ctx context.Context, tenantID string, doctorID uuid.UUID) (bool, error)
}
