package model

import "time"

type DashboardStats struct {
	TotalPatients     int `json:"totalPatients" db:"total_patients"`
	EligiblePatients  int `json:"eligiblePatients" db:"eligible_patients"`
	PendingLabReports int `json:"pendingLabReports" db:"pending_lab_reports"`
	AbnormalA1c       int `json:"abnormalA1c" db:"abnormal_a1c"`
}

// AgeGroup is one age bucket. ID is the bucket's lower bound, or "100+" for
// ages outside the bounded buckets.
type AgeGroup struct {
	ID    interface{} `json:"_id"`
	Count int         `json:"count"`
}

type SummaryReport struct {
	TotalPatients      int        `json:"totalPatients"`
	EligiblePatients   int        `json:"eligiblePatients"`
	IneligiblePatients int        `json:"ineligiblePatients"`
	TotalReadmissions  int        `json:"totalReadmissions"`
	PendingFollowUps   int        `json:"pendingFollowUps"`
	AbnormalResults    int        `json:"abnormalResults"`
	AgeGroups          []AgeGroup `json:"ageGroups"`
}

// PatientReport is the document handed to report renderers.
type PatientReport struct {
	Patient      *Patient       `json:"patient"`
	Readmissions []*Readmission `json:"readmissions"`
	FollowUps    []*FollowUp    `json:"followUps"`
	GeneratedAt  time.Time      `json:"generatedAt"`
}

// AgeBucketBounds are the lower bounds of the summary age buckets. The last
// value closes the final bounded bucket.
var AgeBucketBounds = []int{0, 30, 50, 70, 100}

// AgeBucketOverflow labels ages outside the bounded buckets.
const AgeBucketOverflow = "100+"

// AgeGroups buckets counts keyed by age. Empty buckets are omitted and the
// overflow bucket comes last.
func AgeGroups(countsByAge map[int]int) []AgeGroup {
	bounded := make([]int, len(AgeBucketBounds)-1)
	overflow := 0
	for age, n := range countsByAge {
		idx := -1
		for i := 0; i < len(AgeBucketBounds)-1; i++ {
			if age >= AgeBucketBounds[i] && age < AgeBucketBounds[i+1] {
				idx = i
				break
			}
		}
		if idx < 0 {
			overflow += n
			continue
		}
		bounded[idx] += n
	}

	groups := make([]AgeGroup, 0, len(AgeBucketBounds))
	for i, n := range bounded {
		if n > 0 {
			groups = append(groups, AgeGroup{ID: AgeBucketBounds[i], Count: n})
		}
	}
	if overflow > 0 {
		groups = append(groups, AgeGroup{ID: AgeBucketOverflow, Count: overflow})
	}
	return groups
}
