package models

import "time"

// GradedItem is one assignment with the student's grade, if any.
type GradedItem struct {
	AssignmentID  int64    `db:"assignment_id" json:"assignment_id"`
	Title         string   `db:"title" json:"title"`
	WeightPercent float64  `db:"weight_percent" json:"weight_percent"`
	GradePercent  *float64 `db:"grade_percent" json:"grade_percent"`
	Letter        string   `db:"-" json:"letter,omitempty"`
}

// GradeBreakdown lists every assignment of an offering for one student.
type GradeBreakdown struct {
	OfferingID  int64        `json:"offering_id"`
	StudentID   int64        `json:"student_id"`
	Items       []GradedItem `json:"items"`
	WeightTotal float64      `json:"weight_total"`
}

// CurrentGrade is the weighted average over graded work so far.
type CurrentGrade struct {
	OfferingID    int64    `json:"offering_id"`
	StudentID     int64    `json:"student_id"`
	Percent       *float64 `json:"percent"`
	Letter        string   `json:"letter,omitempty"`
	GradedWeight  float64  `json:"graded_weight"`
	GradedCount   int      `json:"graded_count"`
	AssignedCount int      `json:"assigned_count"`
}

// FinalRecord is a completed enrollment with its final grade and credits.
type FinalRecord struct {
	OfferingID   int64      `db:"offering_id" json:"offering_id"`
	CourseID     int64      `db:"course_id" json:"course_id"`
	CourseCode   string     `db:"course_code" json:"course_code"`
	CourseName   string     `db:"course_name" json:"course_name"`
	TermCode     string     `db:"term_code" json:"term_code"`
	Credits      int        `db:"credits" json:"credits"`
	FinalPercent *float64   `db:"final_percent" json:"final_percent"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	Letter       string     `db:"-" json:"letter,omitempty"`
	GPAPoints    *float64   `db:"-" json:"gpa_points,omitempty"`
	Passed       bool       `db:"-" json:"passed"`
}

// CumulativeGPA is the credit weighted GPA over graded completed courses.
type CumulativeGPA struct {
	StudentID int64    `json:"student_id"`
	GPA       *float64 `json:"gpa"`
	Credits   int      `json:"credits"`
	Courses   int      `json:"courses"`
}

// UpdateFinalGradeRequest records a final grade by percent or letter.
type UpdateFinalGradeRequest struct {
	OfferingID   int64    `json:"offering_id" validate:"required,gt=0"`
	StudentID    int64    `json:"student_id" validate:"required,gt=0"`
	FinalPercent *float64 `json:"final_percent" validate:"required_without=Letter,omitempty,gte=0,lte=100"`
	Letter       string   `json:"letter" validate:"required_without=FinalPercent,omitempty,max=2"`
}

// Transcript is a student's completed coursework with the cumulative GPA.
type Transcript struct {
	Student    UserInfo      `json:"student"`
	Records    []FinalRecord `json:"records"`
	Cumulative CumulativeGPA `json:"cumulative"`
	IssuedAt   time.Time     `json:"issued_at"`
}
