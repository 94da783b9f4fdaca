package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/booking/internal/config"
	"github.com/ehr/booking/internal/domain/booking"
	"github.com/ehr/booking/internal/platform/auth"
	"github.com/ehr/booking/internal/platform/cache"
	"github.com/ehr/booking/internal/platform/db"
	"github.com/ehr/booking/internal/platform/events"
	"github.com/ehr/booking/internal/platform/identity"
	"github.com/ehr/booking/internal/platform/logging"
	"github.com/ehr/booking/internal/platform/middleware"
	"github.com/ehr/booking/internal/platform/telemetry"
	"github.com/ehr/booking/migrations"
)

const (
	serviceName    = "booking-service"
	serviceVersion = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "booking-server",
		Short: "Appointment booking API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the booking API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// openPool loads the configuration and connects to the database.
func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return db.NewPool(ctx, db.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
	}, zerolog.Nop())
}

// migrationSource returns the embedded migrations unless dir is given.
func migrationSource(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("Running migrations on schema: %s\n", schema)
			count, err := db.NewMigrator(pool, migrationSource(dir)).Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationSource(dir)).Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}

	for _, c := range []*cobra.Command{upCmd, statusCmd} {
		c.Flags().String("schema", db.SchemaName("default"), "Target schema for migrations")
		c.Flags().String("dir", "", "Migrations directory (defaults to the embedded set)")
		cmd.AddCommand(c)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Write a new forward migration that reverses the change instead.")
			return nil
		},
	})

	return cmd
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant schema and apply migrations to it",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("Creating tenant schema: %s\n", db.SchemaName(name))
			if err := db.CreateTenantSchema(ctx, pool, name, db.NewMigrator(pool, migrations.FS)); err != nil {
				return err
			}
			fmt.Println("Tenant created successfully.")
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Tenant identifier (alphanumeric)")

	cmd.AddCommand(createCmd)
	return cmd
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, logCloser, err := logging.New(os.Stdout, logging.Options{
		Level:       cfg.LogLevel,
		Development: cfg.IsDev(),
		File:        cfg.LogFile,
		Service:     serviceName,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()

	policy, err := cfg.BookingPolicy()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	metrics := telemetry.NewProvider(telemetry.Config{ServiceName: serviceName, Environment: cfg.Env})
	metrics.RegisterGauge("db.pool.acquired_connections", "Connections in use.", func() int64 {
		return int64(pool.Stat().AcquiredConns())
	})
	metrics.RegisterGauge("db.pool.idle_connections", "Idle connections.", func() int64 {
		return int64(pool.Stat().IdleConns())
	})

	store, closeCache := selectCache(ctx, cfg, logger)
	defer closeCache()

	broker, closeBroker := selectPublisher(cfg, logger)
	defer closeBroker()
	publisher := events.NewAsyncPublisher(broker, cfg.EventQueueSize, cfg.EventPublishTimeout, logger)
	metrics.RegisterGauge("events.queue_depth", "Events waiting for delivery.", func() int64 {
		return int64(publisher.Depth())
	})

	svc := booking.NewService(
		booking.NewRepoPG(pool, policy.Location),
		identity.NewClient(cfg.IdentityServiceURL, cfg.IdentityTimeout, logger),
		policy,
		booking.WithPublisher(publisher, cfg.EventsTopic),
		booking.WithCache(store),
		booking.WithCounters(metrics),
		booking.WithLogger(logger),
	)

	e := newEcho(cfg, logger, metrics)
	e.GET("/health/db", db.ReadinessHandler(pool, cfg.DefaultTenant))
	api := e.Group("/api/v1", db.TenantMiddleware(pool, cfg.DefaultTenant))
	booking.NewHandler(svc).RegisterRoutes(api)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := publisher.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("event queue not drained")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newEcho builds the server with global middleware, authentication and the
// public endpoints. Tenant resolution and API routes are added by the caller.
func newEcho(cfg *config.Config, logger zerolog.Logger, metrics *telemetry.Provider) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.MetricsMiddleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
	}))
	e.Use(echomw.BodyLimit("1M"))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": serviceVersion,
		})
	})
	e.GET("/metrics", metrics.PrometheusHandler())
	return e
}

// selectCache uses Redis when REDIS_URL is set and reachable, and the
// in-process store otherwise.
func selectCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cache.Store, func()) {
	if cfg.RedisURL != "" {
		rs, err := cache.NewRedisStore(ctx, cfg.RedisURL, logger)
		if err == nil {
			return rs, func() { rs.Close() }
		}
		logger.Warn().Err(err).Msg("redis unavailable, using in-memory cache")
	}
	mem := cache.NewMemoryStore()
	cleanupCtx, stop := context.WithCancel(ctx)
	mem.StartCleanup(cleanupCtx, time.Minute)
	return mem, stop
}

// selectPublisher uses RabbitMQ when AMQP_URL is set and reachable, and logs
// events otherwise.
func selectPublisher(cfg *config.Config, logger zerolog.Logger) (events.Publisher, func()) {
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsExchange, serviceName)
		if err == nil {
			logger.Info().Str("exchange", cfg.EventsExchange).Msg("publishing events to rabbitmq")
			return p, func() { p.Close() }
		}
		logger.Warn().Err(err).Msg("rabbitmq unavailable, logging events instead")
	}
	return events.NewLogPublisher(logger), func() {}
}
