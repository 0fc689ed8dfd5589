package echoweb

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/siesnerul/resultdesk/core"
	"github.com/siesnerul/resultdesk/core/session"
	"github.com/siesnerul/resultdesk/services/schoolapi"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errCodeRejected  = echo.NewHTTPError(http.StatusBadRequest, "invalid or expired hand-off code")
	errBackendDown   = echo.NewHTTPError(http.StatusBadGateway, "school backend unavailable, please try again later")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how
// to handle our errors. signalShutdown is called in order to gracefully
// shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *schoolapi.APIError:
			// backend rejections surface as alert-level messages; backend
			// breakage reads the same as a transport failure to the user
			if origErr.Status >= 500 {
				code = errBackendDown.Code
				message = errBackendDown.Message
				logger.Error("school backend error", err)
			} else {
				code = origErr.Status
				message = origErr.Message
			}
		default:
			switch errors.Cause(err) {
			case schoolapi.ErrUnavailable:
				// transport failure: same "try later" answer as a backend 5xx
				code = errBackendDown.Code
				message = errBackendDown.Message
				logger.Error("school backend unreachable", err)
			case session.ErrNoSession, session.ErrAuthFailed:
				code = errUnauthorized.Code
				message = errUnauthorized.Message
			case session.ErrCodeInvalid:
				code = errCodeRejected.Code
				message = errCodeRejected.Message
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				args := []interface{}{errors.Wrap(err, msg)}
				if sess, ok := contextSession(ctx); ok {
					args = append(args, sess)
				}
				logger.Error(msg, args...)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
