package models

// Actor is the authenticated caller. Services take it explicitly rather than
// reading identity from request state.
type Actor struct {
	ID   int64
	Role UserRole
}

func (a Actor) IsAdmin() bool   { return a.Role == RoleAdmin }
func (a Actor) IsTeacher() bool { return a.Role == RoleTeacher }
func (a Actor) IsStudent() bool { return a.Role == RoleStudent }

// Owns reports whether the actor may manage an offering taught by teacherID.
func (a Actor) Owns(teacherID int64) bool {
	return a.IsAdmin() || (a.IsTeacher() && a.ID == teacherID)
}
