// Package export renders downloadable documents built from fetched result
// data: the per-student marksheet PDF and the bulk-upload template workbook.
package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"github.com/siesnerul/resultdesk/core/grading"
	"github.com/siesnerul/resultdesk/services/schoolapi"
)

const (
	margin     = 15.0
	lineHeight = 8.0

	subjectColWidth = 70.0
	scoreColWidth   = 35.0
)

// Marksheet renders one student's result as a PDF and writes it to w.
func Marksheet(w io.Writer, result schoolapi.StudentResult) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.AddPage()

	pdf.SetFont("Times", "B", 18)
	pdf.CellFormat(0, 12, "Marksheet", "", 0, "C", false, 0, "")
	pdf.Ln(16)

	pdf.SetFont("Times", "", 12)
	pdf.Cell(40, lineHeight, "Name:")
	pdf.Cell(0, lineHeight, result.Name)
	pdf.Ln(lineHeight)
	pdf.Cell(40, lineHeight, "Roll No:")
	pdf.Cell(0, lineHeight, result.RollNo)
	pdf.Ln(lineHeight)
	pdf.Cell(40, lineHeight, "Division:")
	pdf.Cell(0, lineHeight, result.Division)
	pdf.Ln(lineHeight * 2)

	pdf.SetFont("Times", "B", 12)
	pdf.CellFormat(subjectColWidth, lineHeight, "Subject", "1", 0, "C", false, 0, "")
	pdf.CellFormat(scoreColWidth, lineHeight, "Annual", "1", 0, "C", false, 0, "")
	pdf.CellFormat(scoreColWidth, lineHeight, "Grace", "1", 0, "C", false, 0, "")
	pdf.CellFormat(scoreColWidth, lineHeight, "Final", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Times", "", 12)
	for _, sub := range result.Subjects {
		pdf.CellFormat(subjectColWidth, lineHeight, sub.Subject, "1", 0, "L", false, 0, "")
		pdf.CellFormat(scoreColWidth, lineHeight, score(sub.Annual), "1", 0, "C", false, 0, "")
		pdf.CellFormat(scoreColWidth, lineHeight, score(sub.Grace), "1", 0, "C", false, 0, "")
		pdf.CellFormat(scoreColWidth, lineHeight, score(sub.Final), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(lineHeight)

	pdf.SetFont("Times", "B", 12)
	pdf.Cell(40, lineHeight, "Total:")
	pdf.Cell(0, lineHeight, score(result.Total))
	pdf.Ln(lineHeight)
	pdf.Cell(40, lineHeight, "Percentage:")
	pdf.Cell(0, lineHeight, score(result.Percentage))
	pdf.Ln(lineHeight)
	pdf.Cell(40, lineHeight, "Grade:")
	pdf.Cell(0, lineHeight, grading.Letter(result.Percentage))
	pdf.Ln(lineHeight)
	pdf.Cell(40, lineHeight, "Result:")
	pdf.Cell(0, lineHeight, grading.PassFail(result.Percentage))

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "rendering marksheet PDF")
	}
	return nil
}

func score(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}
