// Package memory keeps every repository in process memory. It backs the
// service and handler tests and mirrors the postgres semantics: NotFound for
// unknown ids, cascading patient deletes and atomic read-modify-write.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
	"github.com/jwalitptl/followup-api/pkg/errors"
)

type Store struct {
	mu           sync.Mutex
	patients     map[uuid.UUID]model.Patient
	followUps    map[uuid.UUID]model.FollowUp
	readmissions map[uuid.UUID]model.Readmission
	outbox       []model.OutboxEvent

	// Fail, when set, is returned by every operation as a store failure.
	Fail error
}

func NewStore() *Store {
	return &Store{
		patients:     make(map[uuid.UUID]model.Patient),
		followUps:    make(map[uuid.UUID]model.FollowUp),
		readmissions: make(map[uuid.UUID]model.Readmission),
	}
}

func (s *Store) Patients() *PatientRepository         { return &PatientRepository{s} }
func (s *Store) FollowUps() *FollowUpRepository       { return &FollowUpRepository{s} }
func (s *Store) Readmissions() *ReadmissionRepository { return &ReadmissionRepository{s} }
func (s *Store) Stats() *StatsRepository              { return &StatsRepository{s} }
func (s *Store) Outbox() *OutboxRepository            { return &OutboxRepository{s} }

func (s *Store) failure(op string) error {
	if s.Fail != nil {
		return errors.Store(op, s.Fail)
	}
	return nil
}

func clonePatient(p model.Patient) *model.Patient {
	if p.BloodPressure != nil {
		bp := *p.BloodPressure
		p.BloodPressure = &bp
	}
	if p.SugarLevel != nil {
		v := *p.SugarLevel
		p.SugarLevel = &v
	}
	if p.EliminationReason != nil {
		v := *p.EliminationReason
		p.EliminationReason = &v
	}
	return &p
}

func cloneFollowUp(f model.FollowUp) *model.FollowUp {
	tests := make([]string, len(f.RecommendedTests))
	copy(tests, f.RecommendedTests)
	f.RecommendedTests = tests
	return &f
}

func cloneReadmission(r model.Readmission) *model.Readmission {
	return &r
}

// PatientRepository

type PatientRepository struct{ s *Store }

var _ repository.PatientRepository = (*PatientRepository)(nil)

func (r *PatientRepository) Create(_ context.Context, p *model.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("create patient"); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.s.patients[p.ID] = *clonePatient(*p)
	return nil
}

func (r *PatientRepository) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("get patient"); err != nil {
		return nil, err
	}
	p, ok := r.s.patients[id]
	if !ok {
		return nil, errors.NotFound("patient", nil)
	}
	return clonePatient(p), nil
}

func (r *PatientRepository) UpdateFunc(_ context.Context, id uuid.UUID, fn repository.MutateFunc[model.Patient]) (*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("update patient"); err != nil {
		return nil, err
	}
	current, ok := r.s.patients[id]
	if !ok {
		return nil, errors.NotFound("patient", nil)
	}
	p := clonePatient(current)
	if err := fn(p); err != nil {
		return nil, err
	}
	p.ID = id
	r.s.patients[id] = *clonePatient(*p)
	return p, nil
}

func (r *PatientRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("delete patient"); err != nil {
		return err
	}
	if _, ok := r.s.patients[id]; !ok {
		return errors.NotFound("patient", nil)
	}
	delete(r.s.patients, id)
	for fid, f := range r.s.followUps {
		if f.PatientID == id {
			delete(r.s.followUps, fid)
		}
	}
	for rid, rd := range r.s.readmissions {
		if rd.PatientID == id {
			delete(r.s.readmissions, rid)
		}
	}
	return nil
}

func (r *PatientRepository) List(_ context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("list patients"); err != nil {
		return nil, err
	}
	if filters == nil {
		filters = &model.PatientFilters{}
	}
	search := strings.ToLower(strings.TrimSpace(filters.Search))

	out := make([]*model.Patient, 0, len(r.s.patients))
	for _, p := range r.s.patients {
		if filters.Eligible != nil && p.IsEligible != *filters.Eligible {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		out = append(out, clonePatient(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// FollowUpRepository

type FollowUpRepository struct{ s *Store }

var _ repository.FollowUpRepository = (*FollowUpRepository)(nil)

func (r *FollowUpRepository) Create(_ context.Context, f *model.FollowUp) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("create follow-up"); err != nil {
		return err
	}
	if _, ok := r.s.patients[f.PatientID]; !ok {
		return errors.NotFound("patient", nil)
	}
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	r.s.followUps[f.ID] = *cloneFollowUp(*f)
	return nil
}

func (r *FollowUpRepository) Get(_ context.Context, id uuid.UUID) (*model.FollowUp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("get follow-up"); err != nil {
		return nil, err
	}
	f, ok := r.s.followUps[id]
	if !ok {
		return nil, errors.NotFound("follow-up", nil)
	}
	return cloneFollowUp(f), nil
}

func (r *FollowUpRepository) UpdateFunc(_ context.Context, id uuid.UUID, fn repository.MutateFunc[model.FollowUp]) (*model.FollowUp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("update follow-up"); err != nil {
		return nil, err
	}
	current, ok := r.s.followUps[id]
	if !ok {
		return nil, errors.NotFound("follow-up", nil)
	}
	f := cloneFollowUp(current)
	if err := fn(f); err != nil {
		return nil, err
	}
	f.ID = id
	r.s.followUps[id] = *cloneFollowUp(*f)
	return f, nil
}

func (r *FollowUpRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("delete follow-up"); err != nil {
		return err
	}
	if _, ok := r.s.followUps[id]; !ok {
		return errors.NotFound("follow-up", nil)
	}
	delete(r.s.followUps, id)
	return nil
}

func (r *FollowUpRepository) List(_ context.Context, filters *model.FollowUpFilters) ([]*model.FollowUp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("list follow-ups"); err != nil {
		return nil, err
	}
	if filters == nil {
		filters = &model.FollowUpFilters{}
	}

	out := make([]*model.FollowUp, 0)
	for _, f := range r.s.followUps {
		if filters.PatientID != nil && f.PatientID != *filters.PatientID {
			continue
		}
		if filters.Pending && f.Status != model.FollowUpScheduled {
			continue
		}
		out = append(out, cloneFollowUp(f))
	}
	desc := filters.Order == model.SortDesc
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].ScheduledDate.After(out[j].ScheduledDate)
		}
		return out[i].ScheduledDate.Before(out[j].ScheduledDate)
	})
	return out, nil
}

func (r *FollowUpRepository) ListWithPatients(ctx context.Context, filters *model.FollowUpFilters) ([]*model.FollowUpListItem, error) {
	list, err := r.List(ctx, filters)
	if err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.FollowUpListItem, 0, len(list))
	for _, f := range list {
		if p, ok := r.s.patients[f.PatientID]; ok {
			out = append(out, &model.FollowUpListItem{FollowUp: f, Patient: p.Summary()})
		}
	}
	return out, nil
}

// ReadmissionRepository

type ReadmissionRepository struct{ s *Store }

var _ repository.ReadmissionRepository = (*ReadmissionRepository)(nil)

func (r *ReadmissionRepository) Record(_ context.Context, rd *model.Readmission, onPatient repository.MutateFunc[model.Patient]) (*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("record readmission"); err != nil {
		return nil, err
	}
	current, ok := r.s.patients[rd.PatientID]
	if !ok {
		return nil, errors.NotFound("patient", nil)
	}

	p := clonePatient(current)
	p.InpatientVisits++
	if onPatient != nil {
		if err := onPatient(p); err != nil {
			return nil, err
		}
	}
	if rd.ID == uuid.Nil {
		rd.ID = uuid.New()
	}
	p.ID = rd.PatientID
	r.s.patients[p.ID] = *clonePatient(*p)
	r.s.readmissions[rd.ID] = *cloneReadmission(*rd)
	return p, nil
}

func (r *ReadmissionRepository) Get(_ context.Context, id uuid.UUID) (*model.Readmission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("get readmission"); err != nil {
		return nil, err
	}
	rd, ok := r.s.readmissions[id]
	if !ok {
		return nil, errors.NotFound("readmission", nil)
	}
	return cloneReadmission(rd), nil
}

func (r *ReadmissionRepository) UpdateFunc(_ context.Context, id uuid.UUID, fn repository.MutateFunc[model.Readmission]) (*model.Readmission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("update readmission"); err != nil {
		return nil, err
	}
	current, ok := r.s.readmissions[id]
	if !ok {
		return nil, errors.NotFound("readmission", nil)
	}
	rd := cloneReadmission(current)
	if err := fn(rd); err != nil {
		return nil, err
	}
	rd.ID = id
	r.s.readmissions[id] = *rd
	return cloneReadmission(*rd), nil
}

func (r *ReadmissionRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("delete readmission"); err != nil {
		return err
	}
	if _, ok := r.s.readmissions[id]; !ok {
		return errors.NotFound("readmission", nil)
	}
	delete(r.s.readmissions, id)
	return nil
}

func (r *ReadmissionRepository) List(_ context.Context, filters *model.ReadmissionFilters) ([]*model.Readmission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("list readmissions"); err != nil {
		return nil, err
	}
	if filters == nil {
		filters = &model.ReadmissionFilters{}
	}

	out := make([]*model.Readmission, 0)
	for _, rd := range r.s.readmissions {
		if filters.PatientID != nil && rd.PatientID != *filters.PatientID {
			continue
		}
		out = append(out, cloneReadmission(rd))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReadmissionDate.After(out[j].ReadmissionDate) })
	return out, nil
}

func (r *ReadmissionRepository) ListWithPatients(ctx context.Context, filters *model.ReadmissionFilters) ([]*model.ReadmissionListItem, error) {
	list, err := r.List(ctx, filters)
	if err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.ReadmissionListItem, 0, len(list))
	for _, rd := range list {
		if p, ok := r.s.patients[rd.PatientID]; ok {
			out = append(out, &model.ReadmissionListItem{Readmission: rd, Patient: p.Summary()})
		}
	}
	return out, nil
}

// StatsRepository

type StatsRepository struct{ s *Store }

var _ repository.StatsRepository = (*StatsRepository)(nil)

func (r *StatsRepository) Dashboard(_ context.Context) (*model.DashboardStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("dashboard stats"); err != nil {
		return nil, err
	}
	stats := &model.DashboardStats{}
	for _, p := range r.s.patients {
		stats.TotalPatients++
		if p.IsEligible {
			stats.EligiblePatients++
		}
		switch p.HbA1c {
		case model.LabPending:
			stats.PendingLabReports++
		case model.LabAbnormal:
			stats.AbnormalA1c++
		}
	}
	return stats, nil
}

func (r *StatsRepository) Summary(_ context.Context) (*model.SummaryReport, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("summary report"); err != nil {
		return nil, err
	}
	report := &model.SummaryReport{TotalReadmissions: len(r.s.readmissions)}
	ages := make(map[int]int)
	for _, p := range r.s.patients {
		report.TotalPatients++
		if p.IsEligible {
			report.EligiblePatients++
		} else {
			report.IneligiblePatients++
		}
		ages[p.Age]++
	}
	for _, f := range r.s.followUps {
		if f.Status == model.FollowUpScheduled {
			report.PendingFollowUps++
		}
		if f.Result == model.ResultAbnormal {
			report.AbnormalResults++
		}
	}
	report.AgeGroups = model.AgeGroups(ages)
	return report, nil
}

// OutboxRepository

type OutboxRepository struct{ s *Store }

var _ repository.OutboxRepository = (*OutboxRepository)(nil)

// MaxRetries matches the postgres outbox.
const MaxRetries = 3

func (r *OutboxRepository) Create(_ context.Context, e *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("create outbox event"); err != nil {
		return err
	}
	r.s.outbox = append(r.s.outbox, *e)
	return nil
}

func (r *OutboxRepository) ProcessPending(_ context.Context, limit int, fn func(*model.OutboxEvent) error) (int, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("process outbox"); err != nil {
		return 0, 0, err
	}

	processed, failed := 0, 0
	for i := range r.s.outbox {
		if processed+failed >= limit {
			break
		}
		e := &r.s.outbox[i]
		if e.Status == model.OutboxStatusProcessed {
			continue
		}
		if e.Status == model.OutboxStatusFailed && e.RetryCount >= MaxRetries {
			continue
		}

		now := time.Now()
		e.UpdatedAt = now
		if err := fn(e); err != nil {
			msg := err.Error()
			e.ErrorMessage = &msg
			e.RetryCount++
			e.Status = model.OutboxStatusFailed
			failed++
			continue
		}
		e.Status = model.OutboxStatusProcessed
		e.ProcessedAt = &now
		e.ErrorMessage = nil
		processed++
	}
	return processed, failed, nil
}

func (r *OutboxRepository) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("cleanup outbox"); err != nil {
		return 0, err
	}
	kept := r.s.outbox[:0]
	var deleted int64
	for _, e := range r.s.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.s.outbox = kept
	return deleted, nil
}

// Events returns a snapshot of the outbox.
func (r *OutboxRepository) Events() []model.OutboxEvent {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.OutboxEvent, len(r.s.outbox))
	copy(out, r.s.outbox)
	return out
}
