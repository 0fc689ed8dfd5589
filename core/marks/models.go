// Package marks holds the mark-entry model the teacher screens edit, and the
// local validation that must pass before anything is sent to the backend.
package marks

import (
	"fmt"

	"github.com/siesnerul/resultdesk/core"
)

// Fixed per-field mark limits. The backend re-validates authoritatively;
// these gate the save button so a bad row never produces a network call.
const (
	MaxUnit1  = 25.0
	MaxUnit2  = 25.0
	MaxTerm   = 50.0
	MaxAnnual = 100.0
	MaxGrace  = 20.0
)

// Entry is a single student's marks for one subject in one division.
// Score fields are pointers: nil means "not filled in yet", which is fine
// while a row is being composed but blocks a save.
type Entry struct {
	MarkID    int      `json:"mark_id,omitempty"`
	SubjectID int      `json:"subject_id"`
	Division  string   `json:"division"`
	RollNo    string   `json:"roll_no"`
	Unit1     *float64 `json:"unit1"`
	Unit2     *float64 `json:"unit2"`
	Term      *float64 `json:"term"`
	Annual    *float64 `json:"annual"`
	Grace     *float64 `json:"grace"`
	// Grade is only used by the simplified single-score upload mode.
	Grade string `json:"grade,omitempty"`
}

type field struct {
	name string
	val  *float64
	max  float64
}

func (e *Entry) fields() []field {
	return []field{
		{"unit1", e.Unit1, MaxUnit1},
		{"unit2", e.Unit2, MaxUnit2},
		{"term", e.Term, MaxTerm},
		{"annual", e.Annual, MaxAnnual},
		{"grace", e.Grace, MaxGrace},
	}
}

func checkRange(f field) *core.FieldError {
	if f.val == nil {
		return nil
	}
	if *f.val < 0 {
		return &core.FieldError{Field: f.name, Error: fmt.Sprintf("%s must not be negative", f.name)}
	}
	if *f.val > f.max {
		return &core.FieldError{Field: f.name, Error: fmt.Sprintf("%s must be between 0 and %g", f.name, f.max)}
	}
	return nil
}

// Check validates field ranges only; empty fields are allowed. This is the
// validation run while a row is still being composed.
func (e *Entry) Check() error {
	for _, f := range e.fields() {
		if fErr := checkRange(f); fErr != nil {
			return core.NewValidationError(nil, *fErr)
		}
	}
	return nil
}

// Validate is the save-time validation for a full entry: every score field
// must be present and within range. The first failure encountered is
// returned; nothing is submitted when it is non-nil.
func (e *Entry) Validate() error {
	if fErr := e.checkKeys(); fErr != nil {
		return core.NewValidationError(nil, *fErr)
	}
	for _, f := range e.fields() {
		if f.val == nil {
			return core.NewValidationError(nil, core.FieldError{
				Field: f.name,
				Error: fmt.Sprintf("%s is required", f.name),
			})
		}
		if fErr := checkRange(f); fErr != nil {
			return core.NewValidationError(nil, *fErr)
		}
	}
	return nil
}

// ValidateSimplified is the save-time validation for the single-score upload
// mode: only the annual-equivalent score is required; grace and grade stay
// optional but still range-checked.
func (e *Entry) ValidateSimplified() error {
	if fErr := e.checkKeys(); fErr != nil {
		return core.NewValidationError(nil, *fErr)
	}
	if e.Annual == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "annual", Error: "annual is required"})
	}
	return e.Check()
}

func (e *Entry) checkKeys() *core.FieldError {
	e.RollNo = core.CleanString(e.RollNo)
	e.Division = core.CleanString(e.Division, true /* upper */)
	if e.RollNo == "" {
		return &core.FieldError{Field: "roll_no", Error: "roll_no is required"}
	}
	if e.Division == "" {
		return &core.FieldError{Field: "division", Error: "division is required"}
	}
	if e.SubjectID <= 0 {
		return &core.FieldError{Field: "subject_id", Error: "subject_id is required"}
	}
	return nil
}
