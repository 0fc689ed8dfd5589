// Package echoweb is the browser-facing gateway: it owns the session and
// impersonation state and fronts every school backend operation the admin and
// teacher screens need.
package echoweb

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/siesnerul/resultdesk/core"
	"github.com/siesnerul/resultdesk/core/session"
	"github.com/siesnerul/resultdesk/services/schoolapi"
	"github.com/siesnerul/resultdesk/storage/state"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		AppConf    *core.Config
		Logger     core.Logger
		SessionSvc *session.Service
		API        *schoolapi.Client
		Cookies    *CookieSessions
		Tabs       *state.Tabs

		// SignalShutdown is called when an unrecoverable error is caught.
		SignalShutdown func()
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.AppConf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	sess := sessionMiddleware(s.opts.Cookies, s.opts.Tabs)

	registerSessionAPI(s.app, sess, s.opts.SessionSvc, s.opts.Tabs)
	registerAdminAPI(s.app, sess, s.opts.SessionSvc, s.opts.API)
	registerTeacherAPI(s.app, sess, s.opts.API)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to ResultDesk!")
}
