package model

import (
	"strings"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// LabStatus is the state of a lab report (HbA1c, glucose).
type LabStatus string

const (
	LabNormal   LabStatus = "Normal"
	LabAbnormal LabStatus = "Abnormal"
	LabUnknown  LabStatus = "Unknown"
	LabPending  LabStatus = "Pending"
)

type DiabetesMed string

const (
	DiabetesMedYes DiabetesMed = "Yes"
	DiabetesMedNo  DiabetesMed = "No"
)

type BloodPressure struct {
	Systolic  *int `json:"systolic,omitempty" validate:"omitempty,min=0"`
	Diastolic *int `json:"diastolic,omitempty" validate:"omitempty,min=0"`
}

// Patient is one enrolled individual. IsEligible and EliminationReason are
// derived by the eligibility evaluator and are never taken from callers.
type Patient struct {
	Base
	Name            string         `json:"name" validate:"required"`
	Gender          Gender         `json:"gender" validate:"required,oneof=Male Female Other"`
	Age             int            `json:"age" validate:"min=0,max=150"`
	Phone           string         `json:"phone,omitempty"`
	TimeInHospital  int            `json:"timeInHospital" validate:"min=0"`
	EmergencyVisits int            `json:"emergencyVisits" validate:"min=0"`
	InpatientVisits int            `json:"inpatientVisits" validate:"min=0"`
	HbA1c           LabStatus      `json:"hba1c" validate:"required,oneof=Normal Abnormal Unknown Pending"`
	Glucose         LabStatus      `json:"glucose" validate:"required,oneof=Normal Abnormal Unknown Pending"`
	BloodPressure   *BloodPressure `json:"bloodPressure,omitempty" validate:"omitempty"`
	SugarLevel      *float64       `json:"sugarLevel,omitempty" validate:"omitempty,min=0"`
	DiabetesMed     DiabetesMed    `json:"diabetesMed" validate:"required,oneof=Yes No"`

	IsEligible        bool    `json:"isEligible"`
	EliminationReason *string `json:"eliminationReason"`
}

// Verdict is the output of the eligibility evaluator.
type Verdict struct {
	IsEligible        bool    `json:"isEligible"`
	EliminationReason *string `json:"eliminationReason"`
}

// Verdict returns the stored verdict.
func (p *Patient) Verdict() Verdict {
	return Verdict{IsEligible: p.IsEligible, EliminationReason: p.EliminationReason}
}

// SetVerdict stores a verdict on the patient.
func (p *Patient) SetVerdict(v Verdict) {
	p.IsEligible = v.IsEligible
	p.EliminationReason = v.EliminationReason
}

// PatientInput is the caller-settable field set of a patient. It is used for
// creation and for dry-run evaluation.
type PatientInput struct {
	Name            string         `json:"name" validate:"required"`
	Gender          Gender         `json:"gender" validate:"required"`
	Age             *int           `json:"age" validate:"required"`
	Phone           string         `json:"phone"`
	TimeInHospital  *int           `json:"timeInHospital" validate:"required"`
	EmergencyVisits *int           `json:"emergencyVisits"`
	InpatientVisits *int           `json:"inpatientVisits"`
	HbA1c           LabStatus      `json:"hba1c"`
	Glucose         LabStatus      `json:"glucose"`
	BloodPressure   *BloodPressure `json:"bloodPressure"`
	SugarLevel      *float64       `json:"sugarLevel"`
	DiabetesMed     DiabetesMed    `json:"diabetesMed" validate:"required"`
}

// ToPatient builds an unsaved patient with defaults applied.
func (in *PatientInput) ToPatient() *Patient {
	p := &Patient{
		Name:          strings.TrimSpace(in.Name),
		Gender:        in.Gender,
		Phone:         strings.TrimSpace(in.Phone),
		HbA1c:         in.HbA1c,
		Glucose:       in.Glucose,
		BloodPressure: in.BloodPressure,
		SugarLevel:    in.SugarLevel,
		DiabetesMed:   in.DiabetesMed,
	}
	if in.Age != nil {
		p.Age = *in.Age
	}
	if in.TimeInHospital != nil {
		p.TimeInHospital = *in.TimeInHospital
	}
	if in.EmergencyVisits != nil {
		p.EmergencyVisits = *in.EmergencyVisits
	}
	if in.InpatientVisits != nil {
		p.InpatientVisits = *in.InpatientVisits
	}
	if p.HbA1c == "" {
		p.HbA1c = LabPending
	}
	if p.Glucose == "" {
		p.Glucose = LabPending
	}
	return p
}

// UpdatePatientRequest is a partial update. Nil fields are left untouched.
type UpdatePatientRequest struct {
	Name            *string        `json:"name"`
	Gender          *Gender        `json:"gender"`
	Age             *int           `json:"age"`
	Phone           *string        `json:"phone"`
	TimeInHospital  *int           `json:"timeInHospital"`
	EmergencyVisits *int           `json:"emergencyVisits"`
	InpatientVisits *int           `json:"inpatientVisits"`
	HbA1c           *LabStatus     `json:"hba1c"`
	Glucose         *LabStatus     `json:"glucose"`
	BloodPressure   *BloodPressure `json:"bloodPressure"`
	SugarLevel      *float64       `json:"sugarLevel"`
	DiabetesMed     *DiabetesMed   `json:"diabetesMed"`
}

// Apply merges the request into p.
func (r *UpdatePatientRequest) Apply(p *Patient) {
	if r.Name != nil {
		p.Name = strings.TrimSpace(*r.Name)
	}
	if r.Gender != nil {
		p.Gender = *r.Gender
	}
	if r.Age != nil {
		p.Age = *r.Age
	}
	if r.Phone != nil {
		p.Phone = strings.TrimSpace(*r.Phone)
	}
	if r.TimeInHospital != nil {
		p.TimeInHospital = *r.TimeInHospital
	}
	if r.EmergencyVisits != nil {
		p.EmergencyVisits = *r.EmergencyVisits
	}
	if r.InpatientVisits != nil {
		p.InpatientVisits = *r.InpatientVisits
	}
	if r.HbA1c != nil {
		p.HbA1c = *r.HbA1c
	}
	if r.Glucose != nil {
		p.Glucose = *r.Glucose
	}
	if r.BloodPressure != nil {
		p.BloodPressure = r.BloodPressure
	}
	if r.SugarLevel != nil {
		p.SugarLevel = r.SugarLevel
	}
	if r.DiabetesMed != nil {
		p.DiabetesMed = *r.DiabetesMed
	}
}

// LabResult is a lab report update for one patient, as received from the
// lab-results topic.
type LabResult struct {
	PatientID uuid.UUID  `json:"patientId" validate:"required"`
	HbA1c     *LabStatus `json:"hba1c" validate:"omitempty,oneof=Normal Abnormal Unknown Pending"`
	Glucose   *LabStatus `json:"glucose" validate:"omitempty,oneof=Normal Abnormal Unknown Pending"`
}

type PatientFilters struct {
	Eligible *bool
	Search   string
}

// PatientSummary is the patient excerpt embedded in list rows.
type PatientSummary struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Age    int       `json:"age"`
	Gender Gender    `json:"gender"`
}

func (p *Patient) Summary() *PatientSummary {
	return &PatientSummary{ID: p.ID, Name: p.Name, Age: p.Age, Gender: p.Gender}
}
