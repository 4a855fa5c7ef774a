package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Static is an in-memory directory for development and tests. Every
// registered id exists; everything else does not.
type Static struct {
	mu       sync.RWMutex
	patients map[string]map[uuid.UUID]bool
	doctors  map[string]map[uuid.UUID]bool
}

func NewStatic() *Static {
	return &Static{
		patients: make(map[string]map[uuid.UUID]bool),
		doctors:  make(map[string]map[uuid.UUID]bool),
	}
}

func (s *Static) AddPatient(tenantID string, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.patients[tenantID] == nil {
		s.patients[tenantID] = make(map[uuid.UUID]bool)
	}
	s.patients[tenantID][id] = true
}

func (s *Static) AddDoctor(tenantID string, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doctors[tenantID] == nil {
		s.doctors[tenantID] = make(map[uuid.UUID]bool)
	}
	s.doctors[tenantID][id] = true
}

func (s *Static) PatientExists(ctx context.Context, tenantID string, patientID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.patients[tenantID][patientID], nil
}

func (s *Static) DoctorExists(ctx context.Context, tenantID string, doctorID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doctors[tenantID][doctorID], nil
}
