// Package enrollment holds the side-effect free rules of the enrollment
// lifecycle: waitlist eligibility, per-action transitions and the
// prerequisite graph.
package enrollment

import (
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/kanvas-api/internal/models"
)

// Action names a lifecycle transition.
type Action string

const (
	ActionRequestWaitlist Action = "request_waitlist"
	ActionCancelWaitlist  Action = "cancel_waitlist"
	ActionApprove         Action = "approve"
	ActionDeny            Action = "deny"
	ActionDrop            Action = "drop"
	ActionComplete        Action = "complete"
)

// Kind separates a missing relationship from a state or capacity clash.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// TransitionError is returned when a transition's precondition does not hold.
type TransitionError struct {
	Action Action
	Kind   Kind
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Reason)
}

// Reasons surfaced to callers.
const (
	ReasonNoWaitlistEntry     = "no waitlist entry"
	ReasonNoWaitlistToDeny    = "no waitlist entry to deny"
	ReasonNotOnWaitlist       = "not on waitlist"
	ReasonNoSeatAvailable     = "no seat available"
	ReasonNotEnrolled         = "not enrolled"
	ReasonAlreadyInEnrollment = "already has an active enrollment for this offering"
)

func notFound(a Action, reason string) error {
	return &TransitionError{Action: a, Kind: KindNotFound, Reason: reason}
}

func conflict(a Action, reason string) error {
	return &TransitionError{Action: a, Kind: KindConflict, Reason: reason}
}

// AsTransitionError unwraps err into a *TransitionError when it is one.
func AsTransitionError(err error) (*TransitionError, bool) {
	var te *TransitionError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// RequestWaitlist moves none, dropped or denied to waitlisted. A reused row has
// its timestamps and final grade cleared.
func RequestWaitlist(current *models.Enrollment, offeringID, studentID int64, now time.Time) (models.Enrollment, error) {
	if current == nil {
		return models.Enrollment{
			OfferingID:  offeringID,
			StudentID:   studentID,
			Status:      models.EnrollmentWaitlisted,
			RequestedAt: now,
			UpdatedAt:   now,
		}, nil
	}
	if !current.Status.Reenterable() {
		return models.Enrollment{}, conflict(ActionRequestWaitlist, fmt.Sprintf("%s (%s)", ReasonAlreadyInEnrollment, current.Status))
	}
	next := *current
	next.Status = models.EnrollmentWaitlisted
	next.RequestedAt = now
	next.EnrolledAt = nil
	next.CompletedAt = nil
	next.FinalPercent = nil
	next.UpdatedAt = now
	return next, nil
}

// CancelWaitlist allows removing only a waitlisted row.
func CancelWaitlist(current *models.Enrollment) error {
	if current == nil || current.Status != models.EnrollmentWaitlisted {
		return notFound(ActionCancelWaitlist, ReasonNoWaitlistEntry)
	}
	return nil
}

// Approve seats a waitlisted student. seatsLeft is advisory here; the storage
// layer repeats the capacity check inside the write.
func Approve(current *models.Enrollment, seatsLeft int, now time.Time) (models.Enrollment, error) {
	if current == nil {
		return models.Enrollment{}, notFound(ActionApprove, ReasonNoWaitlistEntry)
	}
	if current.Status != models.EnrollmentWaitlisted {
		return models.Enrollment{}, conflict(ActionApprove, ReasonNotOnWaitlist)
	}
	if seatsLeft <= 0 {
		return models.Enrollment{}, NoSeat()
	}
	next := *current
	next.Status = models.EnrollmentEnrolled
	next.EnrolledAt = &now
	next.UpdatedAt = now
	return next, nil
}

// NoSeat is the capacity failure of approve.
func NoSeat() error {
	return conflict(ActionApprove, ReasonNoSeatAvailable)
}

// Deny rejects a waitlisted request.
func Deny(current *models.Enrollment, now time.Time) (models.Enrollment, error) {
	if current == nil || current.Status != models.EnrollmentWaitlisted {
		return models.Enrollment{}, notFound(ActionDeny, ReasonNoWaitlistToDeny)
	}
	next := *current
	next.Status = models.EnrollmentDenied
	next.UpdatedAt = now
	return next, nil
}

// Drop removes an enrolled student, freeing the seat.
func Drop(current *models.Enrollment, now time.Time) (models.Enrollment, error) {
	if current == nil || current.Status != models.EnrollmentEnrolled {
		return models.Enrollment{}, notFound(ActionDrop, ReasonNotEnrolled)
	}
	next := *current
	next.Status = models.EnrollmentDropped
	next.UpdatedAt = now
	return next, nil
}

// Complete closes an enrollment. The final grade is recorded separately.
func Complete(current *models.Enrollment, now time.Time) (models.Enrollment, error) {
	if current == nil || current.Status != models.EnrollmentEnrolled {
		return models.Enrollment{}, notFound(ActionComplete, ReasonNotEnrolled)
	}
	next := *current
	next.Status = models.EnrollmentCompleted
	next.CompletedAt = &now
	next.UpdatedAt = now
	return next, nil
}

// SeatsLeft is total seats minus enrolled students.
func SeatsLeft(totalSeats, enrolled int) int {
	return totalSeats - enrolled
}
