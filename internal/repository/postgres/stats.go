package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
)

type statsRepository struct {
	BaseRepository
}

func NewStatsRepository(base BaseRepository) repository.StatsRepository {
	return &statsRepository{base}
}

func (r *statsRepository) Dashboard(ctx context.Context) (stats *model.DashboardStats, err error) {
	defer func(start time.Time) { r.observe("stats_dashboard", start, err) }(time.Now())

	query := `
		SELECT
			COUNT(*) AS total_patients,
			COUNT(*) FILTER (WHERE is_eligible) AS eligible_patients,
			COUNT(*) FILTER (WHERE hba1c = 'Pending') AS pending_lab_reports,
			COUNT(*) FILTER (WHERE hba1c = 'Abnormal') AS abnormal_a1c
		FROM patients
	`
	var out model.DashboardStats
	if err = r.db.GetContext(ctx, &out, query); err != nil {
		return nil, mapErr("stats", "dashboard stats", err)
	}
	return &out, nil
}

type ageCount struct {
	Age   int `db:"age"`
	Count int `db:"count"`
}

// Summary runs its counts inside one read-only snapshot so the figures agree
// with each other.
func (r *statsRepository) Summary(ctx context.Context) (report *model.SummaryReport, err error) {
	defer func(start time.Time) { r.observe("stats_summary", start, err) }(time.Now())

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, mapErr("stats", "begin summary", err)
	}
	defer tx.Rollback()

	report = &model.SummaryReport{}
	if err = summaryCounts(ctx, tx, report); err != nil {
		return nil, err
	}

	var ages []ageCount
	if err = tx.SelectContext(ctx, &ages, `SELECT age, COUNT(*) AS count FROM patients GROUP BY age`); err != nil {
		return nil, mapErr("stats", "age groups", err)
	}
	byAge := make(map[int]int, len(ages))
	for _, a := range ages {
		byAge[a.Age] += a.Count
	}
	report.AgeGroups = model.AgeGroups(byAge)

	return report, nil
}

func summaryCounts(ctx context.Context, tx *sqlx.Tx, report *model.SummaryReport) error {
	patients := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE is_eligible) AS eligible
		FROM patients
	`
	var pc struct {
		Total    int `db:"total"`
		Eligible int `db:"eligible"`
	}
	if err := tx.GetContext(ctx, &pc, patients); err != nil {
		return mapErr("stats", "patient counts", err)
	}

	if err := tx.GetContext(ctx, &report.TotalReadmissions, `SELECT COUNT(*) FROM readmissions`); err != nil {
		return mapErr("stats", "readmission count", err)
	}

	followUps := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'Scheduled') AS pending,
			COUNT(*) FILTER (WHERE result = 'Abnormal') AS abnormal
		FROM follow_ups
	`
	var fc struct {
		Pending  int `db:"pending"`
		Abnormal int `db:"abnormal"`
	}
	if err := tx.GetContext(ctx, &fc, followUps); err != nil {
		return mapErr("stats", "follow-up counts", err)
	}

	report.TotalPatients = pc.Total
	report.EligiblePatients = pc.Eligible
	report.IneligiblePatients = pc.Total - pc.Eligible
	report.PendingFollowUps = fc.Pending
	report.AbnormalResults = fc.Abnormal
	return nil
}
