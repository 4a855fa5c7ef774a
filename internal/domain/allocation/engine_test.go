package allocation

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/directory"
	"github.com/hms/hms/internal/domain/admission"
	"github.com/hms/hms/internal/domain/bed"
	"github.com/hms/hms/internal/domain/ward"
	"github.com/hms/hms/internal/platform/apperr"
)

// nopTx runs fn directly. Atomicity under failure is the pg runner's job;
// these tests exercise the engine's ordering and error discipline.
type nopTx struct{}

func (nopTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockWards struct {
	mu    sync.Mutex
	wards map[uuid.UUID]*ward.Ward
}

func (m *mockWards) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*ward.Ward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wards[id]
	if !ok || w.TenantID != tenantID {
		return nil, apperr.NotFound("ward %s not found", id)
	}
	cp := *w
	return &cp, nil
}

// mockBeds honors the compare-and-swap discipline of the pg repository:
// Reserve succeeds only on an AVAILABLE active bed, atomically under a lock.
type mockBeds struct {
	mu   sync.Mutex
	beds map[uuid.UUID]*bed.Bed
}

func (m *mockBeds) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*bed.Bed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.beds[id]
	if !ok || b.TenantID != tenantID {
		return nil, apperr.NotFound("bed %s not found", id)
	}
	cp := *b
	return &cp, nil
}

func (m *mockBeds) Reserve(ctx context.Context, tenantID string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.beds[id]
	if !ok || b.TenantID != tenantID || !b.IsActive || b.Status != bed.StatusAvailable {
		return apperr.Conflict("bed not available")
	}
	b.Status = bed.StatusOccupied
	return nil
}

func (m *mockBeds) Release(ctx context.Context, tenantID string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.beds[id]
	if !ok || b.TenantID != tenantID || b.Status != bed.StatusOccupied {
		return apperr.Internal(nil, "bed %s was not occupied on release", id)
	}
	b.Status = bed.StatusAvailable
	return nil
}

func (m *mockBeds) status(id uuid.UUID) bed.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.beds[id].Status
}

type mockLedger struct {
	mu         sync.Mutex
	admissions map[uuid.UUID]*admission.Admission
}

func newMockLedger() *mockLedger {
	return &mockLedger{admissions: make(map[uuid.UUID]*admission.Admission)}
}

func (m *mockLedger) Create(ctx context.Context, a *admission.Admission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.admissions {
		if existing.BedID == a.BedID && existing.State == admission.StateActive {
			return apperr.Conflict("bed not available")
		}
	}
	a.ID = uuid.New()
	a.State = admission.StateActive
	cp := *a
	m.admissions[a.ID] = &cp
	return nil
}

func (m *mockLedger) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*admission.Admission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admissions[id]
	if !ok || a.TenantID != tenantID {
		return nil, apperr.NotFound("admission %s not found", id)
	}
	cp := *a
	return &cp, nil
}

func (m *mockLedger) List(ctx context.Context, tenantID string, f admission.Filter, limit, offset int) ([]*admission.Admission, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*admission.Admission
	for _, a := range m.admissions {
		if a.TenantID != tenantID {
			continue
		}
		if f.State != "" && a.State != f.State {
			continue
		}
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockLedger) UpdateFields(ctx context.Context, tenantID string, id uuid.UUID, patch admission.Patch) (*admission.Admission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admissions[id]
	if !ok || a.TenantID != tenantID {
		return nil, apperr.NotFound("admission %s not found", id)
	}
	if a.State != admission.StateActive {
		return nil, apperr.Conflict("admission is %s", a.State)
	}
	if patch.DoctorID != nil {
		a.DoctorID = patch.DoctorID
	}
	if patch.Diagnosis != nil {
		a.Diagnosis = *patch.Diagnosis
	}
	if patch.Notes != nil {
		a.Notes = patch.Notes
	}
	if patch.ExpectedDischargeAt != nil {
		a.ExpectedDischargeAt = patch.ExpectedDischargeAt
	}
	cp := *a
	return &cp, nil
}

func (m *mockLedger) MarkDischarged(ctx context.Context, tenantID string, id uuid.UUID, summary string, followUp *string) (*admission.Admission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admissions[id]
	if !ok || a.TenantID != tenantID {
		return nil, apperr.NotFound("admission %s not found", id)
	}
	if a.State != admission.StateActive {
		return nil, apperr.Conflict("admission is %s", a.State)
	}
	a.State = admission.StateDischarged
	a.DischargeSummary = &summary
	a.FollowUpInstructions = followUp
	cp := *a
	return &cp, nil
}

func (m *mockLedger) MarkCancelled(ctx context.Context, tenantID string, id uuid.UUID) (*admission.Admission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admissions[id]
	if !ok || a.TenantID != tenantID {
		return nil, apperr.NotFound("admission %s not found", id)
	}
	if a.State != admission.StateActive {
		return nil, apperr.Conflict("admission is %s", a.State)
	}
	a.State = admission.StateCancelled
	cp := *a
	return &cp, nil
}

type fixture struct {
	engine    *Engine
	beds      *mockBeds
	ledger    *mockLedger
	wardID    uuid.UUID
	bed1      uuid.UUID
	bed2      uuid.UUID
	patientID uuid.UUID
	doctorID  uuid.UUID
}

const tenant = "mercy-general"

// Ward W with beds B1, B2, one known patient and one known doctor.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	wardID := uuid.New()
	bed1 := uuid.New()
	bed2 := uuid.New()
	patientID := uuid.New()
	doctorID := uuid.New()

	wards := &mockWards{wards: map[uuid.UUID]*ward.Ward{
		wardID: {ID: wardID, TenantID: tenant, Name: "ICU", Capacity: 2, IsActive: true},
	}}
	beds := &mockBeds{beds: map[uuid.UUID]*bed.Bed{
		bed1: {ID: bed1, TenantID: tenant, WardID: wardID, BedNumber: "B-1", Status: bed.StatusAvailable, IsActive: true},
		bed2: {ID: bed2, TenantID: tenant, WardID: wardID, BedNumber: "B-2", Status: bed.StatusAvailable, IsActive: true},
	}}
	ledger := newMockLedger()

	dir := directory.NewStatic()
	dir.AddPatient(tenant, patientID)
	dir.AddDoctor(tenant, doctorID)

	engine := NewEngine(wards, beds, ledger, dir, dir, nopTx{}, zerolog.Nop())
	return &fixture{
		engine:    engine,
		beds:      beds,
		ledger:    ledger,
		wardID:    wardID,
		bed1:      bed1,
		bed2:      bed2,
		patientID: patientID,
		doctorID:  doctorID,
	}
}

func (f *fixture) admitReq() AdmitRequest {
	return AdmitRequest{
		PatientID:     f.patientID,
		WardID:        f.wardID,
		BedID:         f.bed1,
		AdmissionType: admission.TypeElective,
		Diagnosis:     "obs",
	}
}

func TestAdmit(t *testing.T) {
	f := newFixture(t)

	a, err := f.engine.Admit(context.Background(), tenant, f.admitReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.State != admission.StateActive {
		t.Errorf("expected ACTIVE, got %s", a.State)
	}
	if a.BedID != f.bed1 {
		t.Errorf("expected bed %s bound, got %s", f.bed1, a.BedID)
	}
	if f.beds.status(f.bed1) != bed.StatusOccupied {
		t.Error("expected bed OCCUPIED after admit")
	}
	if f.beds.status(f.bed2) != bed.StatusAvailable {
		t.Error("expected the other bed untouched")
	}
}

func TestAdmit_Validation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		mutate func(*AdmitRequest)
	}{
		{"missing patient", func(r *AdmitRequest) { r.PatientID = uuid.Nil }},
		{"missing ward", func(r *AdmitRequest) { r.WardID = uuid.Nil }},
		{"missing bed", func(r *AdmitRequest) { r.BedID = uuid.Nil }},
		{"bad type", func(r *AdmitRequest) { r.AdmissionType = "ROUTINE" }},
		{"blank diagnosis", func(r *AdmitRequest) { r.Diagnosis = "  " }},
	}
	for _, tc := range cases {
		req := f.admitReq()
		tc.mutate(&req)
		_, err := f.engine.Admit(context.Background(), tenant, req)
		if !apperr.IsInvalidArgument(err) {
			t.Errorf("%s: expected InvalidArgument, got %v", tc.name, err)
		}
	}
}

func TestAdmit_UnknownPatient(t *testing.T) {
	f := newFixture(t)

	req := f.admitReq()
	req.PatientID = uuid.New()
	_, err := f.engine.Admit(context.Background(), tenant, req)
	if !apperr.IsNotFound(err) {
		t.Errorf("expected NotFound for unknown patient, got %v", err)
	}
}

func TestAdmit_UnknownDoctor(t *testing.T) {
	f := newFixture(t)

	req := f.admitReq()
	unknown := uuid.New()
	req.DoctorID = &unknown
	_, err := f.engine.Admit(context.Background(), tenant, req)
	if !apperr.IsNotFound(err) {
		t.Errorf("expected NotFound for unknown doctor, got %v", err)
	}
}

func TestAdmit_BedWardMismatch(t *testing.T) {
	f := newFixture(t)

	otherWard := uuid.New()
	bedElsewhere := uuid.New()
	f.beds.beds[bedElsewhere] = &bed.Bed{
		ID: bedElsewhere, TenantID: tenant, WardID: otherWard,
		BedNumber: "X-1", Status: bed.StatusAvailable, IsActive: true,
	}

	req := f.admitReq()
	req.BedID = bedElsewhere
	_, err := f.engine.Admit(context.Background(), tenant, req)
	if !apperr.IsInvalidArgument(err) {
		t.Errorf("expected InvalidArgument for bed outside ward, got %v", err)
	}
}

func TestAdmit_BedAlreadyOccupied(t *testing.T) {
	f := newFixture(t)

	if _, err := f.engine.Admit(context.Background(), tenant, f.admitReq()); err != nil {
		t.Fatal(err)
	}

	second := uuid.New()
	dir := f.engine.patients.(*directory.Static)
	dir.AddPatient(tenant, second)

	req := f.admitReq()
	req.PatientID = second
	_, err := f.engine.Admit(context.Background(), tenant, req)
	if !apperr.IsConflict(err) {
		t.Fatalf("expected Conflict for occupied bed, got %v", err)
	}
}

func TestAdmit_TenantScoped(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Admit(context.Background(), "other-hospital", f.admitReq())
	if !apperr.IsNotFound(err) {
		t.Errorf("expected NotFound from another tenant, got %v", err)
	}
}

// Two concurrent admits race for one bed; exactly one may win.
func TestAdmit_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)

	second := uuid.New()
	f.engine.patients.(*directory.Static).AddPatient(tenant, second)

	reqs := []AdmitRequest{f.admitReq(), f.admitReq()}
	reqs[1].PatientID = second

	var wg sync.WaitGroup
	errs := make([]error, len(reqs))
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.Admit(context.Background(), tenant, reqs[i])
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperr.IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error kind: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("expected exactly one winner and one conflict, got %d/%d", wins, conflicts)
	}
	if f.beds.status(f.bed1) != bed.StatusOccupied {
		t.Error("expected bed OCCUPIED after the race")
	}

	active, _, err := f.ledger.List(context.Background(), tenant, admission.Filter{State: admission.StateActive}, 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 {
		t.Fatalf("expected exactly one active admission, got %d", len(active))
	}
}

func TestDischarge(t *testing.T) {
	f := newFixture(t)

	a, err := f.engine.Admit(context.Background(), tenant, f.admitReq())
	if err != nil {
		t.Fatal(err)
	}

	followUp := "clinic review in two weeks"
	out, err := f.engine.Discharge(context.Background(), tenant, a.ID, "stable, discharged", &followUp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.State != admission.StateDischarged {
		t.Errorf("expected DISCHARGED, got %s", out.State)
	}
	if out.DischargeSummary == nil || *out.DischargeSummary != "stable, discharged" {
		t.Errorf("expected summary recorded, got %v", out.DischargeSummary)
	}
	if f.beds.status(f.bed1) != bed.StatusAvailable {
		t.Error("expected the bound bed released")
	}
}

// The bound bed is released, never a sibling bed in the same ward.
func TestDischarge_ReleasesExactBed(t *testing.T) {
	f := newFixture(t)

	first, err := f.engine.Admit(context.Background(), tenant, f.admitReq())
	if err != nil {
		t.Fatal(err)
	}

	second := uuid.New()
	f.engine.patients.(*directory.Static).AddPatient(tenant, second)
	req := f.admitReq()
	req.PatientID = second
	req.BedID = f.bed2
	if _, err := f.engine.Admit(context.Background(), tenant, req); err != nil {
		t.Fatal(err)
	}

	if _, err := f.engine.Discharge(context.Background(), tenant, first.ID, "stable", nil); err != nil {
		t.Fatal(err)
	}

	if f.beds.status(f.bed1) != bed.StatusAvailable {
		t.Error("expected discharged patient's bed released")
	}
	if f.beds.status(f.bed2) != bed.StatusOccupied {
		t.Error("the other patient's bed must stay OCCUPIED")
	}
}

func TestDischarge_TerminalIsIdempotentSafe(t *testing.T) {
	f := newFixture(t)

	a, _ := f.engine.Admit(context.Background(), tenant, f.admitReq())
	if _, err := f.engine.Discharge(context.Background(), tenant, a.ID, "stable", nil); err != nil {
		t.Fatal(err)
	}

	_, err := f.engine.Discharge(context.Background(), tenant, a.ID, "again", nil)
	if !apperr.IsConflict(err) {
		t.Fatalf("expected Conflict on second discharge, got %v", err)
	}
	// Released exactly once: the bed is AVAILABLE, not double-released.
	if f.beds.status(f.bed1) != bed.StatusAvailable {
		t.Error("expected bed AVAILABLE after single release")
	}
}

func TestDischarge_RequiresSummary(t *testing.T) {
	f := newFixture(t)

	a, _ := f.engine.Admit(context.Background(), tenant, f.admitReq())
	_, err := f.engine.Discharge(context.Background(), tenant, a.ID, "   ", nil)
	if !apperr.IsInvalidArgument(err) {
		t.Errorf("expected InvalidArgument for blank summary, got %v", err)
	}
}

func TestDischarge_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Discharge(context.Background(), tenant, uuid.New(), "stable", nil)
	if !apperr.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestCancel_RetainsRecord(t *testing.T) {
	f := newFixture(t)

	a, _ := f.engine.Admit(context.Background(), tenant, f.admitReq())
	if err := f.engine.Cancel(context.Background(), tenant, a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.beds.status(f.bed1) != bed.StatusAvailable {
		t.Error("expected bed released on cancel")
	}

	got, err := f.engine.Get(context.Background(), tenant, a.ID)
	if err != nil {
		t.Fatalf("cancelled admission must stay retrievable: %v", err)
	}
	if got.State != admission.StateCancelled {
		t.Errorf("expected CANCELLED, got %s", got.State)
	}

	err = f.engine.Cancel(context.Background(), tenant, a.ID)
	if !apperr.IsConflict(err) {
		t.Errorf("expected Conflict on second cancel, got %v", err)
	}
}

func TestUpdate_InformationalFieldsOnly(t *testing.T) {
	f := newFixture(t)

	a, _ := f.engine.Admit(context.Background(), tenant, f.admitReq())

	diagnosis := "pneumonia, responding to treatment"
	out, err := f.engine.Update(context.Background(), tenant, a.ID, admission.Patch{
		Diagnosis: &diagnosis,
		DoctorID:  &f.doctorID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Diagnosis != diagnosis {
		t.Errorf("expected diagnosis updated, got %q", out.Diagnosis)
	}
	if out.DoctorID == nil || *out.DoctorID != f.doctorID {
		t.Errorf("expected doctor assigned, got %v", out.DoctorID)
	}
	// Bed state untouched by update.
	if f.beds.status(f.bed1) != bed.StatusOccupied {
		t.Error("update must never touch bed state")
	}
}

func TestUpdate_TerminalConflict(t *testing.T) {
	f := newFixture(t)

	a, _ := f.engine.Admit(context.Background(), tenant, f.admitReq())
	if _, err := f.engine.Discharge(context.Background(), tenant, a.ID, "stable", nil); err != nil {
		t.Fatal(err)
	}

	notes := "late note"
	_, err := f.engine.Update(context.Background(), tenant, a.ID, admission.Patch{Notes: &notes})
	if !apperr.IsConflict(err) {
		t.Errorf("expected Conflict updating terminal admission, got %v", err)
	}
}

func TestList_InvalidStateFilter(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.engine.List(context.Background(), tenant, admission.Filter{State: "CLOSED"}, 10, 0)
	if !apperr.IsInvalidArgument(err) {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}
