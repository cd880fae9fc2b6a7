// Package grading holds the letter, percent and GPA rules shared by grade
// display, prerequisite checks and transcript rendering.
package grading

import (
	"fmt"
	"math"
	"strings"
)

// PassThreshold is the lowest final percent that counts as passing (C+).
const PassThreshold = 77.0

// Band is one row of the grade table.
type Band struct {
	Letter    string
	Cutoff    float64
	GPAPoints float64
}

// bands is ordered from the highest cutoff down. Letter cutoffs and GPA
// points live in the same row so they cannot drift apart.
var bands = []Band{
	{"A+", 97, 4.0},
	{"A", 93, 4.0},
	{"A-", 90, 3.7},
	{"B+", 87, 3.3},
	{"B", 83, 3.0},
	{"B-", 80, 2.7},
	{"C+", 77, 2.3},
	{"C", 73, 2.0},
	{"C-", 70, 1.7},
	{"D+", 67, 1.3},
	{"D", 63, 1.0},
	{"D-", 60, 0.7},
	{"F", 0, 0.0},
}

// Bands returns a copy of the grade table, highest first.
func Bands() []Band {
	out := make([]Band, len(bands))
	copy(out, bands)
	return out
}

// Clamp limits p to [0,100].
func Clamp(p float64) float64 {
	return math.Max(0, math.Min(100, p))
}

func bandFor(p float64) Band {
	p = Clamp(p)
	for _, b := range bands {
		if p >= b.Cutoff {
			return b
		}
	}
	return bands[len(bands)-1]
}

// PercentToLetter returns the highest band whose cutoff is at or below p.
func PercentToLetter(p float64) string {
	return bandFor(p).Letter
}

// GPAPoints maps a percent to grade points on the 4.0 scale.
func GPAPoints(p float64) float64 {
	return bandFor(p).GPAPoints
}

// LetterToPercent returns the midpoint between the letter's cutoff and the
// next higher cutoff (100 above A+), rounded to one decimal.
func LetterToPercent(letter string) (float64, error) {
	l := strings.ToUpper(strings.TrimSpace(letter))
	for i, b := range bands {
		if b.Letter != l {
			continue
		}
		upper := 100.0
		if i > 0 {
			upper = bands[i-1].Cutoff
		}
		return Round(b.Cutoff+(upper-b.Cutoff)/2, 1), nil
	}
	return 0, fmt.Errorf("unknown letter grade %q", letter)
}

// Passed reports whether a final percent meets the pass threshold.
func Passed(p float64) bool {
	return p >= PassThreshold
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
