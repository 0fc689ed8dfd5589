package marks

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/siesnerul/resultdesk/core"
)

// UploadReport is the backend's partition of an uploaded spreadsheet:
// rows matched against enrolled students, and rows it could not place.
// A non-empty Missing list is a structured result, not an error.
type UploadReport struct {
	Matched []Entry      `json:"matched"`
	Missing []MissingRow `json:"missing"`
}

// MissingRow identifies a spreadsheet row that matched no known
// student/subject/division key.
type MissingRow struct {
	RollNo   string `json:"roll_no"`
	Name     string `json:"name,omitempty"`
	Division string `json:"division,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Grid returns the matched rows as the editable grid shown to the teacher,
// in canonical order. The missing count is retained separately for display.
func (r UploadReport) Grid() []Entry {
	grid := make([]Entry, len(r.Matched))
	copy(grid, r.Matched)
	sortEntries(grid)
	return grid
}

func (r UploadReport) MissingCount() int { return len(r.Missing) }

// Batch is the payload of a single batch submission replacing the default
// one-call-per-row save path.
type Batch struct {
	Entries []Entry `json:"entries"`
}

// NewBatch builds a batch in canonical order so that submitting the same set
// of rows twice produces a byte-identical payload; the backend upserts by
// (roll_no, division, subject) key, so the resubmission is a no-op.
func NewBatch(entries []Entry) Batch {
	es := make([]Entry, len(entries))
	copy(es, entries)
	sortEntries(es)
	return Batch{Entries: es}
}

// Validate runs the save-time validation over every row; the first failure
// is returned with its row identified, and the whole batch is withheld.
func (b Batch) Validate(simplified bool) error {
	if len(b.Entries) == 0 {
		return core.NewValidationError(errors.New("no rows to save"))
	}
	for i := range b.Entries {
		e := &b.Entries[i]
		var err error
		if simplified {
			err = e.ValidateSimplified()
		} else {
			err = e.Validate()
		}
		if err != nil {
			if vErr, ok := err.(*core.ValidationError); ok && len(vErr.Fields) > 0 {
				fld := vErr.Fields[0]
				return core.NewValidationError(nil, core.FieldError{
					Field: fld.Field,
					Error: fmt.Sprintf("roll %s: %s", e.RollNo, fld.Error),
				})
			}
			return err
		}
	}
	return nil
}

func sortEntries(es []Entry) {
	sort.SliceStable(es, func(i, j int) bool {
		if es[i].Division != es[j].Division {
			return es[i].Division < es[j].Division
		}
		if es[i].SubjectID != es[j].SubjectID {
			return es[i].SubjectID < es[j].SubjectID
		}
		return es[i].RollNo < es[j].RollNo
	})
}
