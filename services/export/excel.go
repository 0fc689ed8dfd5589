package export

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/siesnerul/resultdesk/core/marks"
)

// TemplateSheet is the sheet name the backend's matcher reads rows from.
const TemplateSheet = "Marks"

// TemplateHeaders is the master-sheet column layout the bulk upload expects.
var TemplateHeaders = []string{
	"Roll", "Student Name", "Subject", "Division", "Unit1", "Term", "Unit2", "Annual", "Grace",
}

// UploadTemplate writes a marks workbook in the upload column layout,
// pre-filling one row per existing grid entry so a teacher fills in scores
// only. The matcher keys rows on roll/division/subject; the student name
// column is informational and left for the teacher.
func UploadTemplate(w io.Writer, subject string, rows []marks.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), TemplateSheet)

	for i, h := range TemplateHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return errors.Wrap(err, "addressing header cell")
		}
		if err := f.SetCellValue(TemplateSheet, cell, h); err != nil {
			return errors.Wrap(err, "writing header row")
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(TemplateHeaders), 1)
		_ = f.SetCellStyle(TemplateSheet, "A1", last, style)
	}

	for row, e := range rows {
		values := []interface{}{e.RollNo, "", subject, e.Division}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return errors.Wrap(err, "addressing student cell")
			}
			if err := f.SetCellValue(TemplateSheet, cell, v); err != nil {
				return errors.Wrap(err, "writing student row")
			}
		}
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "writing template workbook")
	}
	return nil
}
