package telemetry

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// PrometheusHandler serves every metric in the text exposition format.
func (p *Provider) PrometheusHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var b strings.Builder

		counters := p.counterSnapshot()
		for _, name := range sortedKeys(counters) {
			prom := promName(name) + "_total"
			fmt.Fprintf(&b, "# HELP %s Total %s.\n", prom, name)
			fmt.Fprintf(&b, "# TYPE %s counter\n", prom)
			fmt.Fprintf(&b, "%s{service=%q} %d\n\n", prom, p.cfg.ServiceName, counters[name])
		}

		gauges := p.gaugeSnapshot()
		for _, name := range sortedKeys(gauges) {
			g := gauges[name]
			prom := promName(name)
			fmt.Fprintf(&b, "# HELP %s %s\n", prom, g.help)
			fmt.Fprintf(&b, "# TYPE %s gauge\n", prom)
			fmt.Fprintf(&b, "%s %d\n\n", prom, g.fn())
		}

		b.WriteString("# HELP http_server_active_requests Number of active HTTP requests.\n")
		b.WriteString("# TYPE http_server_active_requests gauge\n")
		fmt.Fprintf(&b, "http_server_active_requests %d\n\n", p.ActiveRequests())

		const durName = "http_server_request_duration_seconds"
		fmt.Fprintf(&b, "# HELP %s Duration of HTTP requests in seconds.\n", durName)
		fmt.Fprintf(&b, "# TYPE %s histogram\n", durName)
		requests := p.requests.snapshot()
		for _, key := range sortedKeys(requests) {
			parts := strings.SplitN(key, "|", 3)
			if len(parts) != 3 {
				continue
			}
			labels := fmt.Sprintf("method=%q,route=%q,status_code=%q", parts[0], parts[1], parts[2])
			writeHistogram(&b, durName, labels, requests[key])
		}

		return c.Blob(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
	}
}

func writeHistogram(b *strings.Builder, name, labels string, h *histogram) {
	cum := h.cumulativeBuckets()
	for i, boundary := range h.boundaries {
		fmt.Fprintf(b, "%s_bucket{%s,le=\"%g\"} %d\n", name, labels, boundary, cum[i])
	}
	total := h.Count()
	fmt.Fprintf(b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, labels, total)
	fmt.Fprintf(b, "%s_sum{%s} %g\n", name, labels, h.Sum())
	fmt.Fprintf(b, "%s_count{%s} %d\n", name, labels, total)
}

// promName maps a dotted metric name onto the Prometheus charset.
func promName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
}
