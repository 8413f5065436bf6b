package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
)

const patientColumns = `id, name, gender, age, phone, time_in_hospital, emergency_visits,
	inpatient_visits, hba1c, glucose, bp_systolic, bp_diastolic, sugar_level, diabetes_med,
	is_eligible, elimination_reason, created_at, updated_at`

// patientRow is the flat table shape of a patient.
type patientRow struct {
	ID                uuid.UUID `db:"id"`
	Name              string    `db:"name"`
	Gender            string    `db:"gender"`
	Age               int       `db:"age"`
	Phone             string    `db:"phone"`
	TimeInHospital    int       `db:"time_in_hospital"`
	EmergencyVisits   int       `db:"emergency_visits"`
	InpatientVisits   int       `db:"inpatient_visits"`
	HbA1c             string    `db:"hba1c"`
	Glucose           string    `db:"glucose"`
	BPSystolic        *int      `db:"bp_systolic"`
	BPDiastolic       *int      `db:"bp_diastolic"`
	SugarLevel        *float64  `db:"sugar_level"`
	DiabetesMed       string    `db:"diabetes_med"`
	IsEligible        bool      `db:"is_eligible"`
	EliminationReason *string   `db:"elimination_reason"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func newPatientRow(p *model.Patient) patientRow {
	row := patientRow{
		ID:                p.ID,
		Name:              p.Name,
		Gender:            string(p.Gender),
		Age:               p.Age,
		Phone:             p.Phone,
		TimeInHospital:    p.TimeInHospital,
		EmergencyVisits:   p.EmergencyVisits,
		InpatientVisits:   p.InpatientVisits,
		HbA1c:             string(p.HbA1c),
		Glucose:           string(p.Glucose),
		SugarLevel:        p.SugarLevel,
		DiabetesMed:       string(p.DiabetesMed),
		IsEligible:        p.IsEligible,
		EliminationReason: p.EliminationReason,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if p.BloodPressure != nil {
		row.BPSystolic = p.BloodPressure.Systolic
		row.BPDiastolic = p.BloodPressure.Diastolic
	}
	return row
}

func (row patientRow) toModel() *model.Patient {
	p := &model.Patient{
		Base: model.Base{
			ID:        row.ID,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
		Name:              row.Name,
		Gender:            model.Gender(row.Gender),
		Age:               row.Age,
		Phone:             row.Phone,
		TimeInHospital:    row.TimeInHospital,
		EmergencyVisits:   row.EmergencyVisits,
		InpatientVisits:   row.InpatientVisits,
		HbA1c:             model.LabStatus(row.HbA1c),
		Glucose:           model.LabStatus(row.Glucose),
		SugarLevel:        row.SugarLevel,
		DiabetesMed:       model.DiabetesMed(row.DiabetesMed),
		IsEligible:        row.IsEligible,
		EliminationReason: row.EliminationReason,
	}
	if row.BPSystolic != nil || row.BPDiastolic != nil {
		p.BloodPressure = &model.BloodPressure{Systolic: row.BPSystolic, Diastolic: row.BPDiastolic}
	}
	return p
}

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) (err error) {
	defer func(start time.Time) { r.observe("patient_create", start, err) }(time.Now())

	query := `
		INSERT INTO patients (` + patientColumns + `)
		VALUES (
			:id, :name, :gender, :age, :phone, :time_in_hospital, :emergency_visits,
			:inpatient_visits, :hba1c, :glucose, :bp_systolic, :bp_diastolic, :sugar_level,
			:diabetes_med, :is_eligible, :elimination_reason, :created_at, :updated_at
		)
	`
	if _, err = r.db.NamedExecContext(ctx, query, newPatientRow(patient)); err != nil {
		return mapErr("patient", "create patient", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (p *model.Patient, err error) {
	defer func(start time.Time) { r.observe("patient_get", start, err) }(time.Now())

	var row patientRow
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	if err = r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, mapErr("patient", "get patient", err)
	}
	return row.toModel(), nil
}

func (r *patientRepository) UpdateFunc(ctx context.Context, id uuid.UUID, fn repository.MutateFunc[model.Patient]) (p *model.Patient, err error) {
	defer func(start time.Time) { r.observe("patient_update", start, err) }(time.Now())

	err = r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var row patientRow
		query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &row, query, id); err != nil {
			return mapErr("patient", "lock patient", err)
		}

		current := row.toModel()
		if err := fn(current); err != nil {
			return err
		}
		current.ID = id

		if err := updatePatientTx(ctx, tx, current); err != nil {
			return err
		}
		p = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func updatePatientTx(ctx context.Context, tx *sqlx.Tx, p *model.Patient) error {
	query := `
		UPDATE patients SET
			name = :name,
			gender = :gender,
			age = :age,
			phone = :phone,
			time_in_hospital = :time_in_hospital,
			emergency_visits = :emergency_visits,
			inpatient_visits = :inpatient_visits,
			hba1c = :hba1c,
			glucose = :glucose,
			bp_systolic = :bp_systolic,
			bp_diastolic = :bp_diastolic,
			sugar_level = :sugar_level,
			diabetes_med = :diabetes_med,
			is_eligible = :is_eligible,
			elimination_reason = :elimination_reason,
			updated_at = :updated_at
		WHERE id = :id
	`
	if _, err := tx.NamedExecContext(ctx, query, newPatientRow(p)); err != nil {
		return mapErr("patient", "update patient", err)
	}
	return nil
}

// Delete removes the patient and everything recorded against it.
func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer func(start time.Time) { r.observe("patient_delete", start, err) }(time.Now())

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM follow_ups WHERE patient_id = $1`, id); err != nil {
			return mapErr("patient", "delete patient follow-ups", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM readmissions WHERE patient_id = $1`, id); err != nil {
			return mapErr("patient", "delete patient readmissions", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
		if err != nil {
			return mapErr("patient", "delete patient", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return mapErr("patient", "delete patient", err)
		}
		if n == 0 {
			return mapErr("patient", "delete patient", sql.ErrNoRows)
		}
		return nil
	})
}

func (r *patientRepository) List(ctx context.Context, filters *model.PatientFilters) (patients []*model.Patient, err error) {
	defer func(start time.Time) { r.observe("patient_list", start, err) }(time.Now())

	var (
		conditions []string
		args       []interface{}
	)
	if filters != nil {
		if filters.Eligible != nil {
			args = append(args, *filters.Eligible)
			conditions = append(conditions, fmt.Sprintf("is_eligible = $%d", len(args)))
		}
		if search := strings.TrimSpace(filters.Search); search != "" {
			args = append(args, likePattern(search))
			conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
		}
	}

	query := `SELECT ` + patientColumns + ` FROM patients`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var rows []patientRow
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapErr("patient", "list patients", err)
	}

	patients = make([]*model.Patient, 0, len(rows))
	for _, row := range rows {
		patients = append(patients, row.toModel())
	}
	return patients, nil
}

// patientSummary holds the patient columns joined into list queries.
type patientSummary struct {
	PatientName   string `db:"patient_name"`
	PatientAge    int    `db:"patient_age"`
	PatientGender string `db:"patient_gender"`
}

func (s patientSummary) toModel(id uuid.UUID) *model.PatientSummary {
	return &model.PatientSummary{
		ID:     id,
		Name:   s.PatientName,
		Age:    s.PatientAge,
		Gender: model.Gender(s.PatientGender),
	}
}
