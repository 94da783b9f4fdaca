package telemetry

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// MetricsMiddleware records request durations keyed by method, route pattern
// and status, and tracks in-flight requests.
func (p *Provider) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !p.cfg.metricsOn() {
				return next(c)
			}

			atomic.AddInt64(&p.activeRequests, 1)
			defer atomic.AddInt64(&p.activeRequests, -1)

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			key := LabelsKey(c.Request().Method, route, strconv.Itoa(status))
			p.requests.getOrCreate(key, defaultDurationBuckets).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
