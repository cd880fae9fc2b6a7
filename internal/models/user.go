package models

import "time"

// UserRole is fixed at registration.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// User represents an application user stored in the users table.
type User struct {
	ID             int64      `db:"id" json:"id"`
	Role           UserRole   `db:"role" json:"role"`
	Email          string     `db:"email" json:"email"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	StudentNumber  *string    `db:"student_number" json:"student_number,omitempty"`
	TeacherNumber  *string    `db:"teacher_number" json:"teacher_number,omitempty"`
	ResetToken     *string    `db:"reset_token" json:"-"`
	TokenCreatedAt *time.Time `db:"token_created_at" json:"-"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Major is a declared field of study.
type Major struct {
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// Profile is the user plus their declared majors.
type Profile struct {
	User
	Majors []Major `json:"majors"`
}

// FacultyEntry whitelists a teacher for self-registration.
type FacultyEntry struct {
	ID            int64  `db:"id" json:"id"`
	Email         string `db:"email" json:"email"`
	TeacherNumber string `db:"teacher_number" json:"teacher_number"`
	FirstName     string `db:"first_name" json:"first_name"`
	LastName      string `db:"last_name" json:"last_name"`
	Active        bool   `db:"active" json:"active"`
}

// UpdateMajorsRequest replaces the caller's majors.
type UpdateMajorsRequest struct {
	Majors []string `json:"majors" validate:"dive,required,max=16"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
	TotalCount int `json:"total_count"`
}
