package models

// EligibilityDetails echoes the raw facts behind an eligibility decision.
type EligibilityDetails struct {
	OfferingFound  bool              `json:"offering_found"`
	IsActive       bool              `json:"is_active"`
	EnrollmentOpen bool              `json:"enrollment_open"`
	TotalSeats     int               `json:"total_seats"`
	EnrolledCount  int               `json:"enrolled_count"`
	SeatsLeft      int               `json:"seats_left"`
	CurrentStatus  *EnrollmentStatus `json:"current_status"`
	PrereqsMet     bool              `json:"prereqs_met"`
	MissingPrereqs []string          `json:"missing_prereqs"`
	AlreadyPassed  bool              `json:"already_passed"`
}

// Eligibility is the outcome of a waitlist pre-check. Reasons list every
// blocking failure; Notes carry non-blocking observations such as a full class.
type Eligibility struct {
	Eligible bool               `json:"eligible"`
	Reasons  []string           `json:"reasons"`
	Notes    []string           `json:"notes,omitempty"`
	Details  EligibilityDetails `json:"details"`
}
