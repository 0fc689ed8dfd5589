// Package grading derives display-only classifications from a percentage.
// It owns no storage and calls no backend: the authoritative computation
// lives server-side, this is strictly what the result screens render.
package grading

import "strconv"

// Letter grade thresholds, scanned in descending order; boundaries inclusive.
const (
	GradeAPlus = 75.0
	GradeA     = 60.0
	GradeB     = 50.0
	GradeC     = 35.0
)

// PassMark is the pass/fail cutoff. It shares the numeric value of the lowest
// non-failing letter tier but is a separate scale with separate labels; the
// two must not be unified.
const PassMark = 35.0

// NoGrade is shown when no percentage is determinable.
const NoGrade = "-"

// Pass/fail labels.
const (
	StatusPass       = "PASS"
	StatusFail       = "FAIL"
	StatusIncomplete = "INCOMPLETE"
)

// Letter maps a percentage to its display letter grade.
// A nil percentage (absent or unparseable input) yields NoGrade.
func Letter(p *float64) string {
	if p == nil {
		return NoGrade
	}
	switch {
	case *p >= GradeAPlus:
		return "A+"
	case *p >= GradeA:
		return "A"
	case *p >= GradeB:
		return "B"
	case *p >= GradeC:
		return "C"
	default:
		return "F"
	}
}

// PassFail maps a percentage to its pass/fail label.
// An undetermined percentage is INCOMPLETE, not a failure.
func PassFail(p *float64) string {
	if p == nil {
		return StatusIncomplete
	}
	if *p >= PassMark {
		return StatusPass
	}
	return StatusFail
}

// ParsePercentage parses a raw percentage value; empty or non-numeric input
// yields nil ("no grade determinable").
func ParsePercentage(s string) *float64 {
	if s == "" {
		return nil
	}
	p, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &p
}
