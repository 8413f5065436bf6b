package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
)

const readmissionColumns = `id, patient_id, reason, notes, readmission_date, discharge_date, created_at`

type readmissionRepository struct {
	BaseRepository
}

func NewReadmissionRepository(base BaseRepository) repository.ReadmissionRepository {
	return &readmissionRepository{base}
}

// Record increments the patient's inpatient visit counter with a single
// UPDATE, inserts the readmission and lets onPatient refresh the patient,
// all inside one transaction.
func (r *readmissionRepository) Record(ctx context.Context, rd *model.Readmission, onPatient repository.MutateFunc[model.Patient]) (p *model.Patient, err error) {
	defer func(start time.Time) { r.observe("readmission_record", start, err) }(time.Now())

	err = r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var row patientRow
		increment := `
			UPDATE patients
			SET inpatient_visits = inpatient_visits + 1, updated_at = $2
			WHERE id = $1
			RETURNING ` + patientColumns
		if err := tx.GetContext(ctx, &row, increment, rd.PatientID, rd.CreatedAt); err != nil {
			return mapErr("patient", "increment inpatient visits", err)
		}

		insert := `
			INSERT INTO readmissions (` + readmissionColumns + `)
			VALUES (:id, :patient_id, :reason, :notes, :readmission_date, :discharge_date, :created_at)
		`
		if _, err := tx.NamedExecContext(ctx, insert, rd); err != nil {
			return mapErr("patient", "insert readmission", err)
		}

		current := row.toModel()
		if onPatient != nil {
			if err := onPatient(current); err != nil {
				return err
			}
			current.ID = rd.PatientID
			if err := updatePatientTx(ctx, tx, current); err != nil {
				return err
			}
		}
		p = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *readmissionRepository) Get(ctx context.Context, id uuid.UUID) (rd *model.Readmission, err error) {
	defer func(start time.Time) { r.observe("readmission_get", start, err) }(time.Now())

	var out model.Readmission
	query := `SELECT ` + readmissionColumns + ` FROM readmissions WHERE id = $1`
	if err = r.db.GetContext(ctx, &out, query, id); err != nil {
		return nil, mapErr("readmission", "get readmission", err)
	}
	return &out, nil
}

func (r *readmissionRepository) UpdateFunc(ctx context.Context, id uuid.UUID, fn repository.MutateFunc[model.Readmission]) (rd *model.Readmission, err error) {
	defer func(start time.Time) { r.observe("readmission_update", start, err) }(time.Now())

	err = r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var current model.Readmission
		query := `SELECT ` + readmissionColumns + ` FROM readmissions WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &current, query, id); err != nil {
			return mapErr("readmission", "lock readmission", err)
		}

		if err := fn(&current); err != nil {
			return err
		}
		current.ID = id

		update := `
			UPDATE readmissions SET
				reason = :reason,
				notes = :notes,
				readmission_date = :readmission_date,
				discharge_date = :discharge_date
			WHERE id = :id
		`
		if _, err := tx.NamedExecContext(ctx, update, &current); err != nil {
			return mapErr("readmission", "update readmission", err)
		}
		rd = &current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rd, nil
}

func (r *readmissionRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer func(start time.Time) { r.observe("readmission_delete", start, err) }(time.Now())

	result, err := r.db.ExecContext(ctx, `DELETE FROM readmissions WHERE id = $1`, id)
	if err != nil {
		return mapErr("readmission", "delete readmission", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return mapErr("readmission", "delete readmission", err)
	}
	if n == 0 {
		return mapErr("readmission", "delete readmission", sql.ErrNoRows)
	}
	return nil
}

// List returns readmissions newest first.
func (r *readmissionRepository) List(ctx context.Context, filters *model.ReadmissionFilters) (list []*model.Readmission, err error) {
	defer func(start time.Time) { r.observe("readmission_list", start, err) }(time.Now())

	query := `SELECT ` + readmissionColumns + ` FROM readmissions`
	var args []interface{}
	if filters != nil && filters.PatientID != nil {
		query += ` WHERE patient_id = $1`
		args = append(args, *filters.PatientID)
	}
	query += ` ORDER BY readmission_date DESC`

	list = make([]*model.Readmission, 0)
	if err = r.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, mapErr("readmission", "list readmissions", err)
	}
	return list, nil
}

func (r *readmissionRepository) ListWithPatients(ctx context.Context, filters *model.ReadmissionFilters) (list []*model.ReadmissionListItem, err error) {
	defer func(start time.Time) { r.observe("readmission_list_patients", start, err) }(time.Now())

	query := `
		SELECT r.id, r.patient_id, r.reason, r.notes, r.readmission_date, r.discharge_date, r.created_at,
			p.name AS patient_name, p.age AS patient_age, p.gender AS patient_gender
		FROM readmissions r
		JOIN patients p ON p.id = r.patient_id`
	var args []interface{}
	if filters != nil && filters.PatientID != nil {
		query += ` WHERE r.patient_id = $1`
		args = append(args, *filters.PatientID)
	}
	query += ` ORDER BY r.readmission_date DESC`

	var rows []struct {
		model.Readmission
		patientSummary
	}
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapErr("readmission", "list readmissions", err)
	}

	list = make([]*model.ReadmissionListItem, 0, len(rows))
	for i := range rows {
		rd := rows[i].Readmission
		list = append(list, &model.ReadmissionListItem{
			Readmission: &rd,
			Patient:     rows[i].patientSummary.toModel(rd.PatientID),
		})
	}
	return list, nil
}
