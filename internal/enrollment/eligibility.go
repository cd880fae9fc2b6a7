package enrollment

import (
	"fmt"
	"strings"

	"github.com/noah-isme/kanvas-api/internal/models"
)

// Facts is everything Evaluate needs, gathered by the caller beforehand.
type Facts struct {
	Offering       *models.Offering
	EnrolledCount  int
	Current        *models.Enrollment
	MissingPrereqs []string
	AlreadyPassed  bool
}

// Reasons and notes produced by Evaluate.
const (
	ReasonOfferingNotFound = "offering not found"
	ReasonInactive         = "offering is not active"
	ReasonClosed           = "enrollment is closed for this offering"
	ReasonAlreadyPassed    = "course already passed"
	NoteNoSeats            = "no seats left; the request will wait on the waitlist"
)

// Evaluate checks every blocking rule and reports all failures together.
// Seat availability only produces a note.
func Evaluate(f Facts) models.Eligibility {
	result := models.Eligibility{Reasons: []string{}}
	if f.Offering == nil {
		result.Reasons = append(result.Reasons, ReasonOfferingNotFound)
		result.Details.MissingPrereqs = []string{}
		return result
	}

	o := f.Offering
	seatsLeft := SeatsLeft(o.TotalSeats, f.EnrolledCount)
	missing := f.MissingPrereqs
	if missing == nil {
		missing = []string{}
	}

	result.Details = models.EligibilityDetails{
		OfferingFound:  true,
		IsActive:       o.IsActive,
		EnrollmentOpen: o.EnrollmentOpen,
		TotalSeats:     o.TotalSeats,
		EnrolledCount:  f.EnrolledCount,
		SeatsLeft:      seatsLeft,
		PrereqsMet:     len(missing) == 0,
		MissingPrereqs: missing,
		AlreadyPassed:  f.AlreadyPassed,
	}
	if f.Current != nil {
		status := f.Current.Status
		result.Details.CurrentStatus = &status
	}

	if !o.IsActive {
		result.Reasons = append(result.Reasons, ReasonInactive)
	}
	if !o.EnrollmentOpen {
		result.Reasons = append(result.Reasons, ReasonClosed)
	}
	if f.Current != nil && !f.Current.Status.Reenterable() {
		result.Reasons = append(result.Reasons, fmt.Sprintf("already %s in this offering", f.Current.Status))
	}
	if len(missing) > 0 {
		result.Reasons = append(result.Reasons, "prerequisites not met: "+strings.Join(missing, ", "))
	}
	if f.AlreadyPassed {
		result.Reasons = append(result.Reasons, ReasonAlreadyPassed)
	}
	if seatsLeft <= 0 {
		result.Notes = append(result.Notes, NoteNoSeats)
	}

	result.Eligible = len(result.Reasons) == 0
	return result
}
