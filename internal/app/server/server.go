package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"nomina/internal/domain/audit"
	"nomina/internal/domain/auth"
	"nomina/internal/domain/bulk"
	"nomina/internal/domain/labor"
	"nomina/internal/domain/payroll"
	"nomina/internal/platform/config"
	cryptoutil "nomina/internal/platform/crypto"
	"nomina/internal/platform/db"
	"nomina/internal/platform/jobs"
	"nomina/internal/platform/logger"
	"nomina/internal/platform/metrics"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	Config  config.Config
	Log     *zap.Logger
	DB      *pgxpool.Pool
	Router  http.Handler
	Jobs    *jobs.Service
	Metrics *metrics.Collector
}

// New connects to Postgres, prepares the schema and assembles services and
// routes. Close releases the pool.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	fail := func(err error) (*App, error) {
		pool.Close()
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir, log); err != nil {
			return fail(fmt.Errorf("migrations: %w", err))
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg, log); err != nil {
			return fail(fmt.Errorf("seed: %w", err))
		}
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		return fail(err)
	}
	if !crypto.Configured() {
		log.Warn("DATA_ENCRYPTION_KEY not set; salaries are read from plaintext columns only")
	}

	collector := metrics.New()
	auditor := audit.New(pool)
	bulkOpts := bulk.Options{
		Workers: cfg.BulkWorkers,
		Timeout: cfg.StoreTimeout,
		Logger:  log.Named("bulk"),
	}

	laborStore := labor.NewStore(pool, crypto)
	laborSvc := labor.NewService(laborStore, laborStore, bulkOpts, log.Named("labor"),
		labor.WithAuditor(auditor),
		labor.WithMetrics(collector),
	)
	payrollSvc := payroll.NewService(payroll.NewStore(pool, crypto), payroll.DefaultRates(cfg.OtherDeductions), bulkOpts, log.Named("payroll"),
		payroll.WithAuditor(auditor),
		payroll.WithMetrics(collector),
	)

	jobSvc := jobs.New(jobs.NewPGStore(pool), log, jobs.Options{
		LaborRecalcInterval: cfg.LaborRecalcInterval,
		Tenants: func(ctx context.Context) ([]string, error) {
			return db.ListTenants(ctx, pool)
		},
		Labor: laborSvc,
	})

	router := NewRouter(Deps{
		Config:  cfg,
		Log:     log,
		Labor:   laborSvc,
		Payroll: payrollSvc,
		Jobs:    jobSvc,
		Perms:   auth.NewStore(pool),
		Metrics: collector,
		Ready:   pool.Ping,
	})

	return &App{
		Config:  cfg,
		Log:     log,
		DB:      pool,
		Router:  router,
		Jobs:    jobSvc,
		Metrics: collector,
	}, nil
}

// Serve runs the HTTP server and the job worker until ctx is cancelled, then
// drains both.
func (a *App) Serve(ctx context.Context) error {
	jobCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	a.Jobs.Start(jobCtx)

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("server listening", zap.String("addr", a.Config.Addr), zap.String("env", a.Config.Environment))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	stopJobs()
	a.Jobs.Wait()
	return err
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run is the process entry point: config, logger, signal handling.
func Run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Serve(ctx)
}
