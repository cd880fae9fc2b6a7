package models

// Course is a static catalog entry.
type Course struct {
	ID         int64  `db:"id" json:"id"`
	Code       string `db:"code" json:"code"`
	Name       string `db:"name" json:"name"`
	Department string `db:"department" json:"department"`
}

// CreateCourseRequest adds a catalog entry.
type CreateCourseRequest struct {
	Code       string `json:"code" validate:"required,max=16"`
	Name       string `json:"name" validate:"required,max=160"`
	Department string `json:"department" validate:"required,max=80"`
}

// UpdateCourseRequest patches a catalog entry.
type UpdateCourseRequest struct {
	Name       *string `json:"name" validate:"omitempty,max=160"`
	Department *string `json:"department" validate:"omitempty,max=80"`
}
