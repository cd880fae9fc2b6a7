package models

import "time"

// Submission is a student's work on an assignment. One row per pair;
// resubmission replaces the URL but keeps any grade.
type Submission struct {
	ID            int64      `db:"id" json:"id"`
	AssignmentID  int64      `db:"assignment_id" json:"assignment_id"`
	StudentID     int64      `db:"student_id" json:"student_id"`
	SubmissionURL string     `db:"submission_url" json:"submission_url"`
	SubmittedAt   time.Time  `db:"submitted_at" json:"submitted_at"`
	GradePercent  *float64   `db:"grade_percent" json:"grade_percent,omitempty"`
	GradedAt      *time.Time `db:"graded_at" json:"graded_at,omitempty"`
	GradedBy      *int64     `db:"graded_by" json:"graded_by,omitempty"`
}

// SubmissionDetail joins assignment and student context.
type SubmissionDetail struct {
	Submission
	OfferingID      int64  `db:"offering_id" json:"offering_id"`
	AssignmentTitle string `db:"assignment_title" json:"assignment_title"`
	FirstName       string `db:"first_name" json:"first_name"`
	LastName        string `db:"last_name" json:"last_name"`
}

// SubmitRequest submits or resubmits work.
type SubmitRequest struct {
	AssignmentID  int64  `json:"assignment_id" validate:"required,gt=0"`
	SubmissionURL string `json:"submission_url" validate:"required,url,max=2048"`
}

// GradeSubmissionRequest grades one student's submission.
type GradeSubmissionRequest struct {
	AssignmentID int64    `json:"assignment_id" validate:"required,gt=0"`
	StudentID    int64    `json:"student_id" validate:"required,gt=0"`
	GradePercent *float64 `json:"grade_percent" validate:"required,gte=0,lte=100"`
}
