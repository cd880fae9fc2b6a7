package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrStaleState means a conditional write matched no row because the
	// record was not in the expected state when the statement ran.
	ErrStaleState = errors.New("row not in expected state")
	// ErrNoSeat means the seat guard rejected an approval.
	ErrNoSeat = errors.New("no seat available")
	// ErrSeatsBelowEnrolled means a seat change would leave fewer seats
	// than enrolled students.
	ErrSeatsBelowEnrolled = errors.New("total seats below enrolled count")
	// ErrDuplicate wraps a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
)

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
