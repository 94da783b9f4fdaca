package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const readinessTimeout = 5 * time.Second

// PoolUsage is the slice of pgxpool statistics reported by the readiness check.
type PoolUsage struct {
	Total    int32 `json:"total"`
	Idle     int32 `json:"idle"`
	Acquired int32 `json:"acquired"`
	Max      int32 `json:"max"`
}

// Readiness describes whether the booking store can serve the default tenant.
type Readiness struct {
	Status        string    `json:"status"`
	Tenant        string    `json:"tenant"`
	Schema        string    `json:"schema"`
	BookingsTable bool      `json:"bookings_table"`
	Pool          PoolUsage `json:"pool"`
}

// storeChecker is what the readiness handler needs from the pool.
type storeChecker interface {
	Ping(ctx context.Context) error
	TableExists(ctx context.Context, qualified string) (bool, error)
	Usage() PoolUsage
}

type pgStore struct{ pool *pgxpool.Pool }

func (p pgStore) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p pgStore) TableExists(ctx context.Context, qualified string) (bool, error) {
	var ok bool
	err := p.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, qualified).Scan(&ok)
	return ok, err
}

func (p pgStore) Usage() PoolUsage {
	st := p.pool.Stat()
	return PoolUsage{
		Total:    st.TotalConns(),
		Idle:     st.IdleConns(),
		Acquired: st.AcquiredConns(),
		Max:      st.MaxConns(),
	}
}

// ReadinessHandler reports 200 once the database answers and the default
// tenant's schema holds the booking table, 503 otherwise. Failures use the
// same {"reason","message"} body as the booking API.
func ReadinessHandler(pool *pgxpool.Pool, defaultTenant string) echo.HandlerFunc {
	return readinessHandler(pgStore{pool: pool}, defaultTenant)
}

func readinessHandler(s storeChecker, tenant string) echo.HandlerFunc {
	schema := SchemaName(tenant)
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
		defer cancel()

		r := Readiness{Tenant: tenant, Schema: schema, Pool: s.Usage()}
		if err := s.Ping(ctx); err != nil {
			return unavailable(c, r, "database unreachable: "+err.Error())
		}
		ok, err := s.TableExists(ctx, schema+".booking")
		if err != nil {
			return unavailable(c, r, "schema lookup failed: "+err.Error())
		}
		r.BookingsTable = ok
		if !ok {
			return unavailable(c, r, "schema "+schema+" is not migrated")
		}
		r.Status = "ready"
		return c.JSON(http.StatusOK, r)
	}
}

func unavailable(c echo.Context, r Readiness, message string) error {
	r.Status = "unavailable"
	return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
		"reason":    "unavailable",
		"message":   message,
		"readiness": r,
	})
}
