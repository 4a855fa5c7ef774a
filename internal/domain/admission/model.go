// Package admission is the ledger of inpatient stays: which patient holds
// which bed, from when, and how the stay ended. The ledger is pure record
// keeping — bed state changes belong to the allocation engine, which couples
// them to the lifecycle transitions recorded here.
package admission

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeElective  Type = "ELECTIVE"
	TypeEmergency Type = "EMERGENCY"
	TypeTransfer  Type = "TRANSFER"
)

func (t Type) Valid() bool {
	switch t {
	case TypeElective, TypeEmergency, TypeTransfer:
		return true
	}
	return false
}

type State string

const (
	StateActive     State = "ACTIVE"
	StateDischarged State = "DISCHARGED"
	StateCancelled  State = "CANCELLED"
)

func (s State) Valid() bool {
	switch s {
	case StateActive, StateDischarged, StateCancelled:
		return true
	}
	return false
}

type Admission struct {
	ID       uuid.UUID `json:"id"`
	TenantID string    `json:"-"`

	PatientID uuid.UUID  `json:"patient_id"`
	WardID    uuid.UUID  `json:"ward_id"`
	BedID     uuid.UUID  `json:"bed_id"`
	DoctorID  *uuid.UUID `json:"doctor_id,omitempty"`

	AdmissionType       Type       `json:"admission_type"`
	Diagnosis           string     `json:"diagnosis"`
	Notes               *string    `json:"notes,omitempty"`
	AdmittedAt          time.Time  `json:"admitted_at"`
	ExpectedDischargeAt *time.Time `json:"expected_discharge_at,omitempty"`

	State State `json:"state"`
	// Populated only when the stay ends in DISCHARGED.
	DischargeSummary     *string    `json:"discharge_summary,omitempty"`
	FollowUpInstructions *string    `json:"follow_up_instructions,omitempty"`
	DischargedAt         *time.Time `json:"discharged_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Patch covers the informational fields that may change while a stay is
// ACTIVE. Lifecycle fields are off limits.
type Patch struct {
	DoctorID            *uuid.UUID `json:"doctor_id"`
	Diagnosis           *string    `json:"diagnosis"`
	Notes               *string    `json:"notes"`
	ExpectedDischargeAt *time.Time `json:"expected_discharge_at"`
}

type Filter struct {
	State     State
	WardID    *uuid.UUID
	PatientID *uuid.UUID
	Search    string
}
