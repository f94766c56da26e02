package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusUnauthorized, "no matching credentials")
	errUserInactive         = echo.NewHTTPError(http.StatusNotFound, "user inactive")
	errTokenExpired         = echo.NewHTTPError(http.StatusUnauthorized, "refresh token expired")
	errTokenInvalid         = echo.NewHTTPError(http.StatusBadRequest, "invalid refresh token")
	errMalformedBody        = echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errNotImplemented       = echo.NewHTTPError(http.StatusNotImplemented, "not implemented")
)

// errorResponse maps err onto its status code and response body.
// Unknown errors give a 500 with a nil body.
func errorResponse(err error, vld *core.Validator) (int, interface{}) {
	switch cause := errors.Cause(err).(type) {
	case *echo.HTTPError:
		// the JWT middleware answers 400 to a missing token
		if cause == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, cause.Message
		}
		if inner, ok := cause.Internal.(*echo.HTTPError); ok {
			cause = inner
		}
		return cause.Code, cause.Message

	case validator.ValidationErrors:
		return http.StatusBadRequest, vld.Translate(cause).FieldMessages()

	case *core.ValidationError:
		if len(cause.Fields) == 0 {
			return http.StatusBadRequest, cause.Error()
		}
		return http.StatusBadRequest, cause.FieldMessages()

	case *core.PartialMatchError:
		return http.StatusBadRequest, echo.Map{"not_found": cause.Missing}

	case *core.InvalidIdentifierError:
		return http.StatusBadRequest, cause.Error()

	case *core.NotFoundError:
		return http.StatusNotFound, cause.Error()
	}
	return http.StatusInternalServerError, nil
}

// newAppHTTPErrorHandler returns the echo.HTTPErrorHandler rendering every error as JSON.
// Server errors are reported with the authenticated user, and a core shutdown error triggers signalShutdown.
func newAppHTTPErrorHandler(logger core.Logger, vld *core.Validator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := errorResponse(err, vld)

		if code == http.StatusInternalServerError && message == nil {
			msg := http.StatusText(code)
			args := []interface{}{errors.Wrap(err, msg)}
			if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
				args = append(args, usr)
			}
			logger.Error(msg, args...)

			if core.IsShutdown(err) {
				signalShutdown()
			}

			message = msg
			if ctx.Echo().Debug {
				message = err.Error()
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, message)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
