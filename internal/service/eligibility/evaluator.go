// Package eligibility decides whether a patient qualifies for the follow-up
// program.
//
// The rules form an ordered chain and the first failing rule wins. A patient
// can fail several rules at once, so the order decides which reason is
// reported and must not be changed.
package eligibility

import "github.com/jwalitptl/followup-api/internal/model"

// Canonical elimination reasons. These strings are part of the wire format.
const (
	ReasonStayTooShort       = "Stay too short (less than 2 days)"
	ReasonTooManyEmergencies = "Too many emergency visits (more than 3)"
	ReasonNoDiabetesMed      = "Not on diabetes medication"
	ReasonA1CNormal          = "A1C is normal (low priority)"
)

const (
	MinDaysInHospital  = 2
	MaxEmergencyVisits = 3
)

// Rule is one link of the chain. Fails reports whether p is disqualified.
type Rule struct {
	Name   string
	Reason string
	Fails  func(p *model.Patient) bool
}

var rules = []Rule{
	{
		Name:   "minimum_stay",
		Reason: ReasonStayTooShort,
		Fails:  func(p *model.Patient) bool { return p.TimeInHospital < MinDaysInHospital },
	},
	{
		Name:   "emergency_visits",
		Reason: ReasonTooManyEmergencies,
		Fails:  func(p *model.Patient) bool { return p.EmergencyVisits > MaxEmergencyVisits },
	},
	{
		Name:   "diabetes_medication",
		Reason: ReasonNoDiabetesMed,
		Fails:  func(p *model.Patient) bool { return p.DiabetesMed == model.DiabetesMedNo },
	},
	{
		// Unknown and Pending pass: only an explicit Normal result disqualifies.
		Name:   "a1c_normal",
		Reason: ReasonA1CNormal,
		Fails:  func(p *model.Patient) bool { return p.HbA1c == model.LabNormal },
	},
}

// Rules returns the chain in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Evaluate computes the verdict for p. It does not modify p.
func Evaluate(p *model.Patient) model.Verdict {
	for _, r := range rules {
		if r.Fails(p) {
			reason := r.Reason
			return model.Verdict{IsEligible: false, EliminationReason: &reason}
		}
	}
	return model.Verdict{IsEligible: true}
}

// Apply evaluates p and stores the verdict on it. It reports whether the
// stored verdict changed.
func Apply(p *model.Patient) (model.Verdict, bool) {
	before := p.Verdict()
	v := Evaluate(p)
	p.SetVerdict(v)
	return v, !sameVerdict(before, v)
}

func sameVerdict(a, b model.Verdict) bool {
	if a.IsEligible != b.IsEligible {
		return false
	}
	if a.EliminationReason == nil || b.EliminationReason == nil {
		return a.EliminationReason == b.EliminationReason
	}
	return *a.EliminationReason == *b.EliminationReason
}
