package echoweb

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/siesnerul/resultdesk/core"
	"github.com/siesnerul/resultdesk/core/grading"
	"github.com/siesnerul/resultdesk/core/session"
	"github.com/siesnerul/resultdesk/services/export"
	"github.com/siesnerul/resultdesk/services/schoolapi"
)

type adminApi struct {
	svc  *session.Service
	api  *schoolapi.Client
	gens *session.Generations
}

func registerAdminAPI(app *echo.Echo, mw echo.MiddlewareFunc, svc *session.Service, api *schoolapi.Client) {
	a := adminApi{svc: svc, api: api, gens: session.NewGenerations()}

	g := app.Group("/admin", mw, adminMiddleware())
	g.GET("/teachers", a.teachers)
	g.DELETE("/teachers/:id", a.deleteTeacher)
	g.POST("/teachers/:id/impersonate", a.impersonateTeacher)
	g.GET("/divisions", a.divisions)
	g.GET("/results", a.results)
	g.GET("/results/pdf", a.resultsPDF)
	g.GET("/allocations/view", a.allocationsView)
	g.POST("/allocations", a.createAllocation)
	g.DELETE("/allocations/:id", a.deleteAllocation)
	g.GET("/excel/marksheet", a.marksheetExcel)
	g.GET("/excel/master", a.masterExcel)

	// both roles read the subject list
	app.GET("/subjects", a.subjects, mw, authedMiddleware())
}

func (a *adminApi) token(ctx echo.Context) string {
	sess, _ := contextSession(ctx)
	return sess.Token
}

func (a *adminApi) teachers(ctx echo.Context) error {
	teachers, err := a.api.Teachers(ctx.Request().Context(), a.token(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (a *adminApi) deleteTeacher(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "id", Error: "id must be a number"})
	}
	if err := a.api.DeleteTeacher(ctx.Request().Context(), a.token(ctx), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type impersonateRequest struct {
	ReturnURL string `json:"return_url"`
}

// impersonateTeacher starts a hand-off: the backend issues a teacher-scoped
// credential and the answer carries only the target URL with a one-time code.
func (a *adminApi) impersonateTeacher(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "id", Error: "id must be a number"})
	}
	var data impersonateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to impersonateRequest")
	}

	target, err := a.svc.CreateGrant(ctx.Request().Context(), contextDurable(ctx), id, data.ReturnURL)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"url": target})
}

func (a *adminApi) divisions(ctx echo.Context) error {
	divisions, err := a.api.Divisions(ctx.Request().Context(), a.token(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, divisions)
}

// resultView is a backend result row decorated with the classification the
// backend does not compute.
type resultView struct {
	schoolapi.StudentResult
	Grade  string `json:"grade"`
	Status string `json:"status"`
}

func decorate(results []schoolapi.StudentResult) []resultView {
	views := make([]resultView, 0, len(results))
	for _, res := range results {
		views = append(views, resultView{
			StudentResult: res,
			Grade:         grading.Letter(res.Percentage),
			Status:        grading.PassFail(res.Percentage),
		})
	}
	return views
}

// results fetches, decorates and tags a result query with its generation.
// If the same view issued a newer query for the same key while this one was
// in flight, the response is dropped rather than applied out of order.
func (a *adminApi) results(ctx echo.Context) error {
	division := core.CleanString(ctx.QueryParam("division"), true)
	rollNo := core.CleanString(ctx.QueryParam("roll_no"))
	if division == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "division", Error: "division is required"})
	}

	key := "results:" + viewKey(ctx) + ":" + division + ":" + rollNo
	gen := a.gens.Next(key)

	results, err := a.api.Results(ctx.Request().Context(), a.token(ctx), division, rollNo)
	if err != nil {
		return err
	}
	if !a.gens.Latest(key, gen) {
		return ctx.NoContent(http.StatusNoContent) // superseded, drop
	}

	return ctx.JSON(http.StatusOK, echo.Map{
		"generation": gen,
		"results":    decorate(results),
	})
}

func (a *adminApi) resultsPDF(ctx echo.Context) error {
	division := core.CleanString(ctx.QueryParam("division"), true)
	rollNo := core.CleanString(ctx.QueryParam("roll_no"))
	if division == "" || rollNo == "" {
		return core.NewValidationError(errors.New("division and roll_no are required"))
	}

	results, err := a.api.Results(ctx.Request().Context(), a.token(ctx), division, rollNo)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no result for this roll number")
	}

	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "application/pdf")
	resp.Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="marksheet_%s_%s.pdf"`, division, rollNo))
	resp.WriteHeader(http.StatusOK)
	return export.Marksheet(resp, results[0])
}

// allocationsView is the allocation page init: the three independent lists
// are fetched concurrently and the page waits for all of them.
func (a *adminApi) allocationsView(ctx echo.Context) error {
	token := a.token(ctx)

	var (
		teachers    []session.TeacherRef
		subjects    []schoolapi.Subject
		allocations []schoolapi.Allocation
	)
	grp, grpCtx := errgroup.WithContext(ctx.Request().Context())
	grp.Go(func() (err error) {
		teachers, err = a.api.Teachers(grpCtx, token)
		return
	})
	grp.Go(func() (err error) {
		subjects, err = a.api.Subjects(grpCtx, token)
		return
	})
	grp.Go(func() (err error) {
		allocations, err = a.api.Allocations(grpCtx, token)
		return
	})
	if err := grp.Wait(); err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, echo.Map{
		"teachers":    teachers,
		"subjects":    subjects,
		"allocations": allocations,
	})
}

type allocationRequest struct {
	TeacherID int    `json:"teacher_id" validate:"required"`
	SubjectID int    `json:"subject_id" validate:"required"`
	Division  string `json:"division" validate:"required,division"`
}

func (a *adminApi) createAllocation(ctx echo.Context) error {
	var data allocationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to allocationRequest")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}

	alloc, err := a.api.CreateAllocation(ctx.Request().Context(), a.token(ctx), schoolapi.Allocation{
		TeacherID: data.TeacherID,
		SubjectID: data.SubjectID,
		Division:  core.CleanString(data.Division, true),
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, alloc)
}

func (a *adminApi) deleteAllocation(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "id", Error: "id must be a number"})
	}
	if err := a.api.DeleteAllocation(ctx.Request().Context(), a.token(ctx), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (a *adminApi) subjects(ctx echo.Context) error {
	subjects, err := a.api.Subjects(ctx.Request().Context(), a.token(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (a *adminApi) marksheetExcel(ctx echo.Context) error {
	division := core.CleanString(ctx.QueryParam("division"), true)
	rollNo := core.CleanString(ctx.QueryParam("roll_no"))

	body, contentType, err := a.api.MarksheetExcel(ctx.Request().Context(), a.token(ctx), division, rollNo)
	if err != nil {
		return err
	}
	defer body.Close()
	return ctx.Stream(http.StatusOK, contentType, body)
}

func (a *adminApi) masterExcel(ctx echo.Context) error {
	body, contentType, err := a.api.MasterExcel(ctx.Request().Context(), a.token(ctx))
	if err != nil {
		return err
	}
	defer body.Close()
	return ctx.Stream(http.StatusOK, contentType, body)
}
