package echoweb

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/siesnerul/resultdesk/core"
	"github.com/siesnerul/resultdesk/core/session"
	"github.com/siesnerul/resultdesk/storage/state"
)

type sessionApi struct {
	svc  *session.Service
	tabs *state.Tabs
}

func registerSessionAPI(app *echo.Echo, mw echo.MiddlewareFunc, svc *session.Service, tabs *state.Tabs) {
	api := sessionApi{svc: svc, tabs: tabs}

	g := app.Group("/session", mw)
	g.POST("", api.login)
	g.DELETE("", api.logout)
	g.GET("", api.restore)
	g.POST("/impersonate", api.consumeGrant)
	g.POST("/impersonate/return", api.returnToAdmin)
}

type loginRequest struct {
	UserID   string `json:"userid"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (api *sessionApi) login(ctx echo.Context) error {
	var data loginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to loginRequest")
	}

	sess, err := api.svc.Login(ctx.Request().Context(), contextDurable(ctx), data.UserID, data.Password, data.Role)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) logout(ctx echo.Context) error {
	api.svc.Logout(ctx.Request().Context(), contextDurable(ctx), contextTab(ctx))
	return ctx.NoContent(http.StatusNoContent)
}

// restore re-establishes the session on page load. The view query parameter
// tells teacher views apart so a tab-scoped grant can take precedence.
func (api *sessionApi) restore(ctx echo.Context) error {
	teacherView := ctx.QueryParam("view") == "teacher"
	sess, err := api.svc.RestoreOnLoad(ctx.Request().Context(), contextDurable(ctx), contextTab(ctx), teacherView)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess)
}

type consumeGrantRequest struct {
	Code string `json:"code" validate:"required"`
}

// consumeGrant redeems a one-time hand-off code for a fresh tab: the grant is
// seeded into a newly minted tab bucket and the tab ID handed back so the
// page can strip the code from its address and identify itself from then on.
func (api *sessionApi) consumeGrant(ctx echo.Context) error {
	var data consumeGrantRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to consumeGrantRequest")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}

	tabID := api.tabs.NewID()
	g, err := api.svc.ConsumeGrant(api.tabs.Bucket(tabID), data.Code)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, echo.Map{
		"tab_id": tabID,
		"session": session.Session{
			Token:        g.Token,
			Role:         session.RoleTeacher,
			Name:         g.TeacherName,
			UserID:       g.TeacherID,
			Impersonated: true,
		},
	})
}

func (api *sessionApi) returnToAdmin(ctx echo.Context) error {
	tab := contextTab(ctx)
	if tab == nil {
		return errCodeRejected
	}
	redirect, err := api.svc.ReturnToAdmin(contextDurable(ctx), tab)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"redirect": redirect})
}
