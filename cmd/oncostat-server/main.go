package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/oncostat/oncostat/internal/analytics/cluster"
	"github.com/oncostat/oncostat/internal/clinicaltables"
	"github.com/oncostat/oncostat/internal/config"
	"github.com/oncostat/oncostat/internal/domain/clinicalreport"
	"github.com/oncostat/oncostat/internal/domain/predictive"
	"github.com/oncostat/oncostat/internal/domain/statistics"
	"github.com/oncostat/oncostat/internal/platform/auth"
	"github.com/oncostat/oncostat/internal/platform/cache"
	"github.com/oncostat/oncostat/internal/platform/compute"
	"github.com/oncostat/oncostat/internal/platform/db"
	"github.com/oncostat/oncostat/internal/platform/httpapi"
	"github.com/oncostat/oncostat/internal/platform/logging"
	"github.com/oncostat/oncostat/internal/platform/metrics"
	"github.com/oncostat/oncostat/internal/platform/middleware"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:           "oncostat-server",
		Short:         "Prostate oncology analytics and statistics API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(tablesCmd())
	rootCmd.AddCommand(analyzeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the analytics API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// server holds everything the HTTP routes are built from.
type server struct {
	cfg      *config.Config
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	runner   *compute.Runner
	tables   *clinicaltables.Store
	patients clinicalreport.PatientRepository
	probe    db.Probe
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level:       cfg.LogLevel,
		Development: cfg.IsDev(),
		File:        cfg.LogFile,
		MaxSizeMB:   cfg.LogMaxSizeMB,
		MaxBackups:  cfg.LogMaxBackups,
		MaxAgeDays:  cfg.LogMaxAgeDays,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if cfg.ResolvedAuthMode() == config.AuthDevelopment {
		logger.Warn().Msg("development auth is active: every request is granted the admin role")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	tables, err := clinicaltables.NewStore(cfg.ClinicalTablesFile, logger)
	if err != nil {
		return err
	}
	tables.OnReload = m.TableReloaded
	if err := tables.Watch(ctx); err != nil {
		return err
	}

	patients, probe, closeDB, err := openPatientSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	srv := &server{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		runner:   compute.NewRunner(cache.New(cfg.CacheSize, cfg.CacheTTL), m),
		tables:   tables,
		patients: patients,
		probe:    probe,
	}
	e, err := srv.routes()
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// openPatientSource connects the patient database named by DATABASE_URL.
// Without one the per-patient routes are not registered.
func openPatientSource(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (clinicalreport.PatientRepository, db.Probe, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info().Msg("no DATABASE_URL configured; patient reports disabled")
		return nil, nil, func() {}, nil
	}
	driver, dsn, err := db.ParseURL(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}

	switch driver {
	case db.Postgres:
		pool, err := db.NewPool(ctx, dsn, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info().Str("driver", string(driver)).Msg("connected to database")
		return clinicalreport.NewPatientRepoPG(pool), db.PostgresProbe(pool), pool.Close, nil
	default:
		conn, err := db.OpenSQLite(ctx, dsn, int(cfg.DBMaxConns))
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info().Str("driver", string(driver)).Msg("connected to database")
		return clinicalreport.NewPatientRepoSQLite(conn), db.SQLiteProbe(conn), func() { conn.Close() }, nil
	}
}

func (s *server) routes() (*echo.Echo, error) {
	cfg := s.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpapi.ErrorHandler(s.logger)

	// Recovery sits inside the timeout so panics in the handler goroutine
	// are still caught.
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(s.logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(middleware.Recovery(s.logger))

	switch cfg.ResolvedAuthMode() {
	case config.AuthDevelopment:
		e.Use(auth.DevAuthMiddleware())
	default:
		key, err := cfg.SigningKey()
		if err != nil {
			return nil, err
		}
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: key,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if s.probe != nil {
		e.GET("/health/db", db.HealthHandler(s.probe, s.logger))
	}
	e.GET("/metrics", s.metrics.Handler())

	api := e.Group("/api/v1")
	statistics.NewHandler(s.runner).RegisterRoutes(api)
	predictive.NewHandler(s.runner, s.tables, cluster.Options{
		Seed:    cfg.KMeansSeed,
		MaxIter: cfg.KMeansMaxIter,
		NInit:   cfg.KMeansNInit,
	}).RegisterRoutes(api)
	svc := clinicalreport.NewService(s.patients, s.tables, s.runner, s.logger)
	clinicalreport.NewHandler(svc).RegisterRoutes(api)

	return e, nil
}
