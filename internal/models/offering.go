package models

import "time"

// Offering is one scheduled instance of a course: a course, term and section
// taught by a single owning teacher.
type Offering struct {
	ID             int64     `db:"id" json:"id"`
	CourseID       int64     `db:"course_id" json:"course_id"`
	TermID         int64     `db:"term_id" json:"term_id"`
	TeacherID      int64     `db:"teacher_id" json:"teacher_id"`
	Code           string    `db:"code" json:"code"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	Section        string    `db:"section" json:"section"`
	Credits        int       `db:"credits" json:"credits"`
	TotalSeats     int       `db:"total_seats" json:"total_seats"`
	EnrollmentOpen bool      `db:"enrollment_open" json:"enrollment_open"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// OfferingDetail adds catalog names and live seat counts.
type OfferingDetail struct {
	Offering
	CourseCode    string           `db:"course_code" json:"course_code"`
	TermCode      string           `db:"term_code" json:"term_code"`
	TeacherName   string           `db:"teacher_name" json:"teacher_name"`
	EnrolledCount int              `db:"enrolled_count" json:"enrolled_count"`
	SeatsLeft     int              `db:"seats_left" json:"seats_left"`
	Prerequisites []OfferingPrereq `db:"-" json:"prerequisites,omitempty"`
}

// OfferingPrereq is one prerequisite edge as seen from the dependent offering.
type OfferingPrereq struct {
	OfferingID       int64  `db:"offering_id" json:"-"`
	PrereqOfferingID int64  `db:"prereq_offering_id" json:"offering_id"`
	CourseID         int64  `db:"course_id" json:"course_id"`
	CourseCode       string `db:"course_code" json:"course_code"`
}

// CourseEdge links a course to a prerequisite course.
type CourseEdge struct {
	CourseID       int64 `db:"course_id"`
	PrereqCourseID int64 `db:"prereq_course_id"`
}

// OfferingFilter narrows offering listings.
type OfferingFilter struct {
	TermID    *int64
	TeacherID *int64
	Query     string
	Section   string
	Limit     int
	Offset    int
}

// CreateOfferingRequest creates an offering. Admins may assign another teacher.
type CreateOfferingRequest struct {
	CourseID       int64  `json:"course_id" validate:"required,gt=0"`
	TermID         int64  `json:"term_id" validate:"required,gt=0"`
	TeacherID      int64  `json:"teacher_id" validate:"omitempty,gt=0"`
	Code           string `json:"code" validate:"required,max=32"`
	Name           string `json:"name" validate:"required,max=160"`
	Description    string `json:"description" validate:"max=4000"`
	Section        string `json:"section" validate:"omitempty,max=16"`
	Credits        int    `json:"credits" validate:"gte=0,lte=12"`
	TotalSeats     int    `json:"total_seats" validate:"gte=0,lte=1000"`
	EnrollmentOpen *bool  `json:"enrollment_open"`
	IsActive       *bool  `json:"is_active"`
}

// UpdateOfferingRequest patches an offering.
type UpdateOfferingRequest struct {
	Name           *string `json:"name" validate:"omitempty,max=160"`
	Description    *string `json:"description" validate:"omitempty,max=4000"`
	Section        *string `json:"section" validate:"omitempty,max=16"`
	Credits        *int    `json:"credits" validate:"omitempty,gte=0,lte=12"`
	TotalSeats     *int    `json:"total_seats" validate:"omitempty,gte=0,lte=1000"`
	EnrollmentOpen *bool   `json:"enrollment_open"`
	IsActive       *bool   `json:"is_active"`
}

// AddPrereqRequest attaches a prerequisite offering.
type AddPrereqRequest struct {
	PrereqOfferingID int64 `json:"prereq_offering_id" validate:"required,gt=0"`
}

// Classmate is a co-enrolled student visible to members.
type Classmate struct {
	StudentID int64  `db:"student_id" json:"student_id"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Email     string `db:"email" json:"email"`
}

// SeatCount is the live seat picture for an offering.
type SeatCount struct {
	OfferingID    int64 `db:"offering_id" json:"offering_id"`
	TotalSeats    int   `db:"total_seats" json:"total_seats"`
	EnrolledCount int   `db:"enrolled_count" json:"enrolled_count"`
	SeatsLeft     int   `db:"seats_left" json:"seats_left"`
}
