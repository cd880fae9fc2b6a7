package models

import "time"

// EnrollmentStatus is the lifecycle state of an (offering, student) pair.
type EnrollmentStatus string

const (
	EnrollmentWaitlisted EnrollmentStatus = "waitlisted"
	EnrollmentEnrolled   EnrollmentStatus = "enrolled"
	EnrollmentDropped    EnrollmentStatus = "dropped"
	EnrollmentDenied     EnrollmentStatus = "denied"
	EnrollmentCompleted  EnrollmentStatus = "completed"
)

// Reenterable reports whether a fresh waitlist request may reuse the row.
func (s EnrollmentStatus) Reenterable() bool {
	return s == EnrollmentDropped || s == EnrollmentDenied
}

// Enrollment is the single row kept per (offering, student).
type Enrollment struct {
	ID           int64            `db:"id" json:"id"`
	OfferingID   int64            `db:"offering_id" json:"offering_id"`
	StudentID    int64            `db:"student_id" json:"student_id"`
	Status       EnrollmentStatus `db:"status" json:"status"`
	RequestedAt  time.Time        `db:"requested_at" json:"requested_at"`
	EnrolledAt   *time.Time       `db:"enrolled_at" json:"enrolled_at,omitempty"`
	CompletedAt  *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	FinalPercent *float64         `db:"final_percent" json:"final_percent,omitempty"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with the student's identity.
type EnrollmentDetail struct {
	Enrollment
	FirstName     string  `db:"first_name" json:"first_name"`
	LastName      string  `db:"last_name" json:"last_name"`
	Email         string  `db:"email" json:"email"`
	StudentNumber *string `db:"student_number" json:"student_number,omitempty"`
}

// WaitlistRequest is a student's own request against an offering.
type WaitlistRequest struct {
	OfferingID int64 `json:"offering_id" validate:"required,gt=0"`
}

// EnrollmentActionRequest names the student an owner acts on.
type EnrollmentActionRequest struct {
	OfferingID int64 `json:"offering_id" validate:"required,gt=0"`
	StudentID  int64 `json:"student_id" validate:"required,gt=0"`
}
