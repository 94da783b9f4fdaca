package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout bounds each request's context. Handlers observe the deadline
// through their database and HTTP calls; an error caused by it becomes a 504.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				var he *echo.HTTPError
				if !errors.As(err, &he) || he.Code >= 500 {
					return echo.NewHTTPError(http.StatusGatewayTimeout,
						map[string]string{"reason": "timeout", "message": "request exceeded " + timeout.String()})
				}
			}
			return err
		}
	}
}
