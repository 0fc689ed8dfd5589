package echoweb

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/siesnerul/resultdesk/core/session"
	"github.com/siesnerul/resultdesk/storage/state"
)

// tabIDHeader carries the per-tab identifier each page generates for itself.
const tabIDHeader = "X-Tab-ID"

const (
	ctxKeySession = "app.session"
	ctxKeyDurable = "app.durable"
	ctxKeyTab     = "app.tab"
)

// sessionMiddleware resolves the request's stores and live session and puts
// them on the context. Resolution is pure; no backend call happens here.
func sessionMiddleware(cookies *CookieSessions, tabs *state.Tabs) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			durable := cookies.Durable(ctx)
			ctx.Set(ctxKeyDurable, durable)

			var tab session.TabStore
			if id := ctx.Request().Header.Get(tabIDHeader); id != "" {
				tab = tabs.Bucket(id)
				ctx.Set(ctxKeyTab, tab)
			}

			if sess, ok := session.Current(durable, tab, isTeacherView(ctx)); ok {
				ctx.Set(ctxKeySession, sess)
			}
			return next(ctx)
		}
	}
}

// isTeacherView reports whether the request belongs to a teacher view, where
// a tab-scoped impersonation grant outranks the durable session.
func isTeacherView(ctx echo.Context) bool {
	return strings.HasPrefix(ctx.Request().URL.Path, "/teacher")
}

// viewKey identifies the requesting view for the stale-response guard.
// Supersession is per view: a newer query invalidates older ones from the
// same tab only, never another tab's or another user's in-flight response.
func viewKey(ctx echo.Context) string {
	if id := ctx.Request().Header.Get(tabIDHeader); id != "" {
		return id
	}
	if sess, ok := contextSession(ctx); ok {
		return sess.Token
	}
	return ctx.RealIP()
}

func contextSession(ctx echo.Context) (session.Session, bool) {
	sess, ok := ctx.Get(ctxKeySession).(session.Session)
	return sess, ok
}

func contextDurable(ctx echo.Context) session.DurableStore {
	durable, _ := ctx.Get(ctxKeyDurable).(session.DurableStore)
	return durable
}

func contextTab(ctx echo.Context) session.TabStore {
	tab, _ := ctx.Get(ctxKeyTab).(session.TabStore)
	return tab
}

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, ok := contextSession(ctx)
			if !ok {
				return errUnauthorized
			}
			// an impersonating admin acts as the teacher, not as themselves
			if !sess.IsAdmin() || sess.Impersonated {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func teacherMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, ok := contextSession(ctx)
			if !ok {
				return errUnauthorized
			}
			if !sess.IsTeacher() && !sess.Impersonated {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func authedMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if _, ok := contextSession(ctx); !ok {
				return errUnauthorized
			}
			return next(ctx)
		}
	}
}
