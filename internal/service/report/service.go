package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
)

const (
	dashboardKey = "dashboard"
	summaryKey   = "summary"
)

type ReportService interface {
	Dashboard(ctx context.Context) (*model.DashboardStats, error)
	Summary(ctx context.Context) (*model.SummaryReport, error)
	PatientReport(ctx context.Context, patientID uuid.UUID) (*model.PatientReport, error)
}

type Service struct {
	stats        repository.StatsRepository
	patients     repository.PatientRepository
	followUps    repository.FollowUpRepository
	readmissions repository.ReadmissionRepository
	cache        *cache.Cache
	now          func() time.Time
}

// NewService builds the report service. Aggregates are cached for ttl; a
// zero ttl disables the cache.
func NewService(
	stats repository.StatsRepository,
	patients repository.PatientRepository,
	followUps repository.FollowUpRepository,
	readmissions repository.ReadmissionRepository,
	ttl time.Duration,
) *Service {
	s := &Service{
		stats:        stats,
		patients:     patients,
		followUps:    followUps,
		readmissions: readmissions,
		now:          time.Now,
	}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

func (s *Service) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	if s.cache != nil {
		if cached, found := s.cache.Get(dashboardKey); found {
			stats := cached.(model.DashboardStats)
			return &stats, nil
		}
	}

	stats, err := s.stats.Dashboard(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(dashboardKey, *stats, cache.DefaultExpiration)
	}
	return stats, nil
}

func (s *Service) Summary(ctx context.Context) (*model.SummaryReport, error) {
	if s.cache != nil {
		if cached, found := s.cache.Get(summaryKey); found {
			summary := cached.(model.SummaryReport)
			summary.AgeGroups = append([]model.AgeGroup(nil), summary.AgeGroups...)
			return &summary, nil
		}
	}

	summary, err := s.stats.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load summary report: %w", err)
	}
	if summary.AgeGroups == nil {
		summary.AgeGroups = []model.AgeGroup{}
	}

	if s.cache != nil {
		stored := *summary
		stored.AgeGroups = append([]model.AgeGroup(nil), summary.AgeGroups...)
		s.cache.Set(summaryKey, stored, cache.DefaultExpiration)
	}
	return summary, nil
}

// PatientReport collects everything recorded about one patient.
func (s *Service) PatientReport(ctx context.Context, patientID uuid.UUID) (*model.PatientReport, error) {
	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	readmissions, err := s.readmissions.List(ctx, &model.ReadmissionFilters{PatientID: &patientID})
	if err != nil {
		return nil, fmt.Errorf("failed to list readmissions: %w", err)
	}

	followUps, err := s.followUps.List(ctx, &model.FollowUpFilters{PatientID: &patientID, Order: model.SortDesc})
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-ups: %w", err)
	}

	return &model.PatientReport{
		Patient:      p,
		Readmissions: readmissions,
		FollowUps:    followUps,
		GeneratedAt:  s.now(),
	}, nil
}

// Invalidate drops cached aggregates.
func (s *Service) Invalidate() {
	if s.cache != nil {
		s.cache.Flush()
	}
}
