package echoweb

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/siesnerul/resultdesk/core"
	"github.com/siesnerul/resultdesk/core/marks"
	"github.com/siesnerul/resultdesk/services/export"
	"github.com/siesnerul/resultdesk/services/schoolapi"
)

type teacherApi struct {
	api *schoolapi.Client
}

func registerTeacherAPI(app *echo.Echo, mw echo.MiddlewareFunc, api *schoolapi.Client) {
	a := teacherApi{api: api}

	g := app.Group("/teacher", mw, teacherMiddleware())
	g.GET("/marks", a.marks)
	g.POST("/marks", a.createMark)
	g.PUT("/marks/:id", a.updateMark)
	g.DELETE("/marks/:id", a.deleteMark)
	g.POST("/marks/batch", a.submitBatch)
	g.GET("/student-marks", a.studentMarks)
	g.POST("/marks/upload", a.uploadMarks)
	g.GET("/marks/template", a.marksTemplate)
}

func (a *teacherApi) token(ctx echo.Context) string {
	sess, _ := contextSession(ctx)
	return sess.Token
}

func (a *teacherApi) marks(ctx echo.Context) error {
	subjectID, err := strconv.Atoi(ctx.QueryParam("subject_id"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "subject_id", Error: "subject_id must be a number"})
	}
	division := core.CleanString(ctx.QueryParam("division"), true)
	if division == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "division", Error: "division is required"})
	}

	entries, err := a.api.Marks(ctx.Request().Context(), a.token(ctx), subjectID, division)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entries)
}

// createMark saves one grid row. Validation runs here, before any backend
// call; the first failing field is what the user sees.
func (a *teacherApi) createMark(ctx echo.Context) error {
	var entry marks.Entry
	if err := ctx.Bind(&entry); err != nil {
		return errors.Wrap(err, "binding to Entry")
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	saved, err := a.api.CreateMark(ctx.Request().Context(), a.token(ctx), entry)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, saved)
}

func (a *teacherApi) updateMark(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "id", Error: "id must be a number"})
	}
	var entry marks.Entry
	if err := ctx.Bind(&entry); err != nil {
		return errors.Wrap(err, "binding to Entry")
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	saved, err := a.api.UpdateMark(ctx.Request().Context(), a.token(ctx), id, entry)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, saved)
}

func (a *teacherApi) deleteMark(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "id", Error: "id must be a number"})
	}
	if err := a.api.DeleteMark(ctx.Request().Context(), a.token(ctx), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type batchRequest struct {
	Entries    []marks.Entry `json:"entries"`
	Simplified bool          `json:"simplified"`
}

// submitBatch saves a whole grid in one backend call. Entries are put in
// canonical order first so resubmitting an unmodified grid produces the
// identical payload.
func (a *teacherApi) submitBatch(ctx echo.Context) error {
	var data batchRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to batchRequest")
	}

	batch := marks.NewBatch(data.Entries)
	if err := batch.Validate(data.Simplified); err != nil {
		return err
	}

	if err := a.api.SubmitMarkBatch(ctx.Request().Context(), a.token(ctx), batch); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"saved": len(batch.Entries)})
}

func (a *teacherApi) studentMarks(ctx echo.Context) error {
	rollNo := core.CleanString(ctx.QueryParam("roll_no"))
	division := core.CleanString(ctx.QueryParam("division"), true)
	if rollNo == "" || division == "" {
		return core.NewValidationError(errors.New("roll_no and division are required"))
	}

	entries, err := a.api.StudentMarks(ctx.Request().Context(), a.token(ctx), rollNo, division)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entries)
}

// uploadMarks forwards a spreadsheet to the backend matcher. Unmatched rows
// are part of the answer, not a failure.
func (a *teacherApi) uploadMarks(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "a spreadsheet file is required"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	report, err := a.api.UploadMarksWorkbook(ctx.Request().Context(), a.token(ctx), fileHeader.Filename, file)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, echo.Map{
		"matched":       report.Grid(),
		"missing":       report.Missing,
		"missing_count": report.MissingCount(),
	})
}

// marksTemplate hands out the upload workbook. With a subject and division
// the teacher's existing grid pre-fills the key columns; otherwise the
// workbook is headers only.
func (a *teacherApi) marksTemplate(ctx echo.Context) error {
	subject := core.CleanString(ctx.QueryParam("subject"))
	division := core.CleanString(ctx.QueryParam("division"), true)

	var rows []marks.Entry
	if subjectID, err := strconv.Atoi(ctx.QueryParam("subject_id")); err == nil && division != "" {
		if rows, err = a.api.Marks(ctx.Request().Context(), a.token(ctx), subjectID, division); err != nil {
			return err
		}
	}

	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	resp.Header().Set(echo.HeaderContentDisposition, `attachment; filename="marks_template.xlsx"`)
	resp.WriteHeader(http.StatusOK)
	return export.UploadTemplate(resp, subject, rows)
}
