package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const panicStackSize = 4 << 10

// Recovery turns a handler panic into a 500 carrying the booking API's
// {"reason","message"} body plus the request id, and logs the panic with the
// route and tenant it happened under. http.ErrAbortHandler is re-raised so
// net/http can abort the connection.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if e, ok := r.(error); ok && errors.Is(e, http.ErrAbortHandler) {
					panic(r)
				}

				stack := make([]byte, panicStackSize)
				stack = stack[:runtime.Stack(stack, false)]
				rid := requestIDOf(c)
				tenant, _ := c.Get("tenant_id").(string)

				logger.Error().
					Str("request_id", rid).
					Str("method", c.Request().Method).
					Str("route", c.Path()).
					Str("tenant_id", tenant).
					Str("panic", fmt.Sprintf("%v", r)).
					Bytes("stack", stack).
					Msg("panic recovered")

				if c.Response().Committed {
					// Headers are out; nothing useful can be sent.
					err = nil
					return
				}
				err = echo.NewHTTPError(http.StatusInternalServerError, map[string]string{
					"reason":     "internal",
					"message":    "internal server error",
					"request_id": rid,
				})
			}()
			return next(c)
		}
	}
}
