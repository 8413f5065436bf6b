package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
)

const followUpColumns = `id, patient_id, type, status, result, recommended_tests, notes,
	scheduled_date, completed_date, cancelled_date, is_completed, created_at, updated_at`

type followUpRow struct {
	ID               uuid.UUID      `db:"id"`
	PatientID        uuid.UUID      `db:"patient_id"`
	Type             string         `db:"type"`
	Status           string         `db:"status"`
	Result           string         `db:"result"`
	RecommendedTests pq.StringArray `db:"recommended_tests"`
	Notes            string         `db:"notes"`
	ScheduledDate    time.Time      `db:"scheduled_date"`
	CompletedDate    *time.Time     `db:"completed_date"`
	CancelledDate    *time.Time     `db:"cancelled_date"`
	IsCompleted      bool           `db:"is_completed"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func newFollowUpRow(f *model.FollowUp) followUpRow {
	tests := pq.StringArray(f.RecommendedTests)
	if tests == nil {
		tests = pq.StringArray{}
	}
	return followUpRow{
		ID:               f.ID,
		PatientID:        f.PatientID,
		Type:             string(f.Type),
		Status:           string(f.Status),
		Result:           string(f.Result),
		RecommendedTests: tests,
		Notes:            f.Notes,
		ScheduledDate:    f.ScheduledDate,
		CompletedDate:    f.CompletedDate,
		CancelledDate:    f.CancelledDate,
		IsCompleted:      f.IsCompleted,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

func (row followUpRow) toModel() *model.FollowUp {
	tests := []string(row.RecommendedTests)
	if tests == nil {
		tests = []string{}
	}
	return &model.FollowUp{
		Base: model.Base{
			ID:        row.ID,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
		PatientID:        row.PatientID,
		Type:             model.FollowUpType(row.Type),
		Status:           model.FollowUpStatus(row.Status),
		Result:           model.FollowUpResult(row.Result),
		RecommendedTests: tests,
		Notes:            row.Notes,
		ScheduledDate:    row.ScheduledDate,
		CompletedDate:    row.CompletedDate,
		CancelledDate:    row.CancelledDate,
		IsCompleted:      row.IsCompleted,
	}
}

type followUpRepository struct {
	BaseRepository
}

func NewFollowUpRepository(base BaseRepository) repository.FollowUpRepository {
	return &followUpRepository{base}
}

// Create inserts the follow-up. A missing patient surfaces as NotFound
// through the foreign key.
func (r *followUpRepository) Create(ctx context.Context, f *model.FollowUp) (err error) {
	defer func(start time.Time) { r.observe("followup_create", start, err) }(time.Now())

	query := `
		INSERT INTO follow_ups (` + followUpColumns + `)
		VALUES (
			:id, :patient_id, :type, :status, :result, :recommended_tests, :notes,
			:scheduled_date, :completed_date, :cancelled_date, :is_completed, :created_at, :updated_at
		)
	`
	if _, err = r.db.NamedExecContext(ctx, query, newFollowUpRow(f)); err != nil {
		return mapErr("patient", "create follow-up", err)
	}
	return nil
}

func (r *followUpRepository) Get(ctx context.Context, id uuid.UUID) (f *model.FollowUp, err error) {
	defer func(start time.Time) { r.observe("followup_get", start, err) }(time.Now())

	var row followUpRow
	query := `SELECT ` + followUpColumns + ` FROM follow_ups WHERE id = $1`
	if err = r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, mapErr("follow-up", "get follow-up", err)
	}
	return row.toModel(), nil
}

func (r *followUpRepository) UpdateFunc(ctx context.Context, id uuid.UUID, fn repository.MutateFunc[model.FollowUp]) (f *model.FollowUp, err error) {
	defer func(start time.Time) { r.observe("followup_update", start, err) }(time.Now())

	err = r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var row followUpRow
		query := `SELECT ` + followUpColumns + ` FROM follow_ups WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &row, query, id); err != nil {
			return mapErr("follow-up", "lock follow-up", err)
		}

		current := row.toModel()
		if err := fn(current); err != nil {
			return err
		}
		current.ID = id

		update := `
			UPDATE follow_ups SET
				status = :status,
				result = :result,
				recommended_tests = :recommended_tests,
				notes = :notes,
				scheduled_date = :scheduled_date,
				completed_date = :completed_date,
				cancelled_date = :cancelled_date,
				is_completed = :is_completed,
				updated_at = :updated_at
			WHERE id = :id
		`
		if _, err := tx.NamedExecContext(ctx, update, newFollowUpRow(current)); err != nil {
			return mapErr("follow-up", "update follow-up", err)
		}
		f = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *followUpRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer func(start time.Time) { r.observe("followup_delete", start, err) }(time.Now())

	result, err := r.db.ExecContext(ctx, `DELETE FROM follow_ups WHERE id = $1`, id)
	if err != nil {
		return mapErr("follow-up", "delete follow-up", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return mapErr("follow-up", "delete follow-up", err)
	}
	if n == 0 {
		return mapErr("follow-up", "delete follow-up", sql.ErrNoRows)
	}
	return nil
}

func (r *followUpRepository) List(ctx context.Context, filters *model.FollowUpFilters) (list []*model.FollowUp, err error) {
	defer func(start time.Time) { r.observe("followup_list", start, err) }(time.Now())

	if filters == nil {
		filters = &model.FollowUpFilters{}
	}
	where, args := followUpWhere(filters, "")
	query := `SELECT ` + followUpColumns + ` FROM follow_ups` + where +
		` ORDER BY scheduled_date ` + orderDirection(string(filters.Order))

	var rows []followUpRow
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapErr("follow-up", "list follow-ups", err)
	}

	list = make([]*model.FollowUp, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.toModel())
	}
	return list, nil
}

func (r *followUpRepository) ListWithPatients(ctx context.Context, filters *model.FollowUpFilters) (list []*model.FollowUpListItem, err error) {
	defer func(start time.Time) { r.observe("followup_list_patients", start, err) }(time.Now())

	if filters == nil {
		filters = &model.FollowUpFilters{}
	}
	where, args := followUpWhere(filters, "f.")
	query := `
		SELECT f.id, f.patient_id, f.type, f.status, f.result, f.recommended_tests, f.notes,
			f.scheduled_date, f.completed_date, f.cancelled_date, f.is_completed, f.created_at, f.updated_at,
			p.name AS patient_name, p.age AS patient_age, p.gender AS patient_gender
		FROM follow_ups f
		JOIN patients p ON p.id = f.patient_id` + where +
		` ORDER BY f.scheduled_date ` + orderDirection(string(filters.Order))

	var rows []followUpPatientRow
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapErr("follow-up", "list follow-ups", err)
	}

	list = make([]*model.FollowUpListItem, 0, len(rows))
	for _, row := range rows {
		list = append(list, &model.FollowUpListItem{
			FollowUp: row.followUpRow.toModel(),
			Patient:  row.patientSummary.toModel(row.PatientID),
		})
	}
	return list, nil
}

type followUpPatientRow struct {
	followUpRow
	patientSummary
}

// followUpWhere builds the WHERE clause for filters. prefix qualifies the
// columns when the query joins other tables.
func followUpWhere(filters *model.FollowUpFilters, prefix string) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	if filters.PatientID != nil {
		args = append(args, *filters.PatientID)
		conditions = append(conditions, fmt.Sprintf("%spatient_id = $%d", prefix, len(args)))
	}
	if filters.Pending {
		args = append(args, string(model.FollowUpScheduled))
		conditions = append(conditions, fmt.Sprintf("%sstatus = $%d", prefix, len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
