package grading

// WeightedScore is one assignment's weight and optional grade.
type WeightedScore struct {
	Weight  float64
	Percent *float64
}

// WeightedAverage averages graded items by weight. Ungraded items are left
// out of both numerator and denominator. ok is false when nothing with a
// positive weight has been graded.
func WeightedAverage(items []WeightedScore) (avg float64, gradedWeight float64, ok bool) {
	var sum float64
	for _, it := range items {
		if it.Percent == nil || it.Weight <= 0 {
			continue
		}
		sum += *it.Percent * it.Weight
		gradedWeight += it.Weight
	}
	if gradedWeight == 0 {
		return 0, 0, false
	}
	return Round(sum/gradedWeight, 2), gradedWeight, true
}

// CreditedGrade is a completed course's credits and final percent.
type CreditedGrade struct {
	Credits      int
	FinalPercent *float64
}

// CumulativeGPA is the credit weighted mean of GPA points. Entries without a
// final percent or without credits are skipped entirely.
func CumulativeGPA(grades []CreditedGrade) (gpa float64, credits int, ok bool) {
	var points float64
	for _, g := range grades {
		if g.FinalPercent == nil || g.Credits <= 0 {
			continue
		}
		points += GPAPoints(*g.FinalPercent) * float64(g.Credits)
		credits += g.Credits
	}
	if credits == 0 {
		return 0, 0, false
	}
	return Round(points/float64(credits), 2), credits, true
}
