package models

import "time"

// Term is a contiguous academic period.
type Term struct {
	ID       int64     `db:"id" json:"id"`
	Code     string    `db:"code" json:"code"`
	StartsOn time.Time `db:"starts_on" json:"starts_on"`
	EndsOn   time.Time `db:"ends_on" json:"ends_on"`
}

// Contains reports whether day falls within the term, inclusive.
func (t Term) Contains(day time.Time) bool {
	d := truncateDay(day)
	return !d.Before(truncateDay(t.StartsOn)) && !d.After(truncateDay(t.EndsOn))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
