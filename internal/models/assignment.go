package models

import "time"

// Assignment is graded work inside an offering.
type Assignment struct {
	ID            int64      `db:"id" json:"id"`
	OfferingID    int64      `db:"offering_id" json:"offering_id"`
	Title         string     `db:"title" json:"title"`
	Description   string     `db:"description" json:"description"`
	WeightPercent float64    `db:"weight_percent" json:"weight_percent"`
	AssignedOn    time.Time  `db:"assigned_on" json:"assigned_on"`
	DueAt         *time.Time `db:"due_at" json:"due_at,omitempty"`
	IsOpen        bool       `db:"is_open" json:"is_open"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// AssignmentDue is an assignment with its offering code, used for calendar feeds.
type AssignmentDue struct {
	Assignment
	OfferingCode string `db:"offering_code" json:"offering_code"`
}

// CreateAssignmentRequest adds an assignment to an offering.
type CreateAssignmentRequest struct {
	OfferingID    int64      `json:"offering_id" validate:"required,gt=0"`
	Title         string     `json:"title" validate:"required,max=200"`
	Description   string     `json:"description" validate:"max=8000"`
	WeightPercent float64    `json:"weight_percent" validate:"gte=0,lte=100"`
	AssignedOn    *time.Time `json:"assigned_on"`
	DueAt         *time.Time `json:"due_at"`
	IsOpen        *bool      `json:"is_open"`
}

// UpdateAssignmentRequest patches an assignment.
type UpdateAssignmentRequest struct {
	Title         *string    `json:"title" validate:"omitempty,max=200"`
	Description   *string    `json:"description" validate:"omitempty,max=8000"`
	WeightPercent *float64   `json:"weight_percent" validate:"omitempty,gte=0,lte=100"`
	DueAt         *time.Time `json:"due_at"`
}
