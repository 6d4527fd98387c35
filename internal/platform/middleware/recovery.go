package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ppk/screening/internal/platform/auth"
)

// Recovery answers a panicking handler with 500 and logs the panic value and
// stack. The response carries the request id so a kiosk can report it.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				rid, _ := c.Get("request_id").(string)
				logger.Error().
					Interface("panic", r).
					Bytes("stack", debug.Stack()).
					Str("request_id", rid).
					Str("method", c.Request().Method).
					Str("route", c.Path()).
					Str("actor", auth.UserIDFromContext(c.Request().Context())).
					Msg("handler panicked")

				err = echo.NewHTTPError(http.StatusInternalServerError, map[string]string{
					"message":    "internal server error",
					"request_id": rid,
				})
			}()
			return next(c)
		}
	}
}
