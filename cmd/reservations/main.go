package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/table-reservations/internal/application"
	"github.com/example/table-reservations/internal/config"
	httptransport "github.com/example/table-reservations/internal/http"
	"github.com/example/table-reservations/internal/logging"
	"github.com/example/table-reservations/internal/metrics"
	"github.com/example/table-reservations/internal/notify"
	"github.com/example/table-reservations/internal/persistence/sqlite"
	"github.com/example/table-reservations/internal/persistence/sqlite/migration"
	"github.com/example/table-reservations/internal/seed"
)

const reportCacheTTL = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("reservation API stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLiteDSN))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(ctx, logger); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	notifier, closeNotifier := newNotifier(cfg, logger)
	defer closeNotifier()

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}

	app := newApp(storage, cfg, appDeps{
		Notifier: notifier,
		Metrics:  collector,
		Now:      time.Now,
		NewID:    uuid.NewString,
		NewToken: func() string { return randomHex(32) },
	}, logger)

	if cfg.SeedFile != "" {
		file, err := seed.LoadFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		if _, err := seed.Apply(ctx, app.seedServices(), file, logger); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("reservation API listening", "addr", server.Addr, "timezone", cfg.Location.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// newNotifier publishes to AMQP when a broker is configured and logs otherwise.
func newNotifier(cfg config.Config, logger *slog.Logger) (application.Notifier, func()) {
	if cfg.AMQPURL == "" {
		return notify.NewLogSender(logger), func() {}
	}
	publisher, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		logger.Error("notification broker unavailable, logging notifications instead", "error", err)
		return notify.NewLogSender(logger), func() {}
	}
	logger.Info("publishing notifications", "exchange", cfg.AMQPExchange)
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close notification publisher", "error", err)
		}
	}
}

type appDeps struct {
	Notifier application.Notifier
	Metrics  *metrics.Collector
	Now      func() time.Time
	NewID    func() string
	NewToken func() string
}

type app struct {
	handler      http.Handler
	accounts     *application.AccountService
	auth         *application.AuthService
	hours        *application.HoursService
	policy       *application.PolicyService
	tables       *application.TableService
	reservations *application.ReservationService
	reports      *application.ReportService
}

func newApp(storage *sqlite.Storage, cfg config.Config, deps appDeps, logger *slog.Logger) *app {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	accountStore := newAccountStoreAdapter(storage.Accounts)
	sessionRepo := newSessionRepositoryAdapter(storage.Sessions)
	tableRepo := newTableRepositoryAdapter(storage.Tables)
	reservationRepo := newReservationRepositoryAdapter(storage.Reservations)
	hoursRepo := newHoursRepositoryAdapter(storage.Hours, deps.Now)
	policyRepo := newPolicyRepositoryAdapter(storage.Policy)

	tokens := application.NewAccountTokens(cfg.SessionSecret, deps.Now)

	a := &app{}
	a.accounts = application.NewAccountServiceWithLogger(accountStore, application.HashPassword, tokens, deps.NewID, deps.Now, logger).
		WithNotifier(deps.Notifier)
	a.auth = application.NewAuthServiceWithLogger(accountStore, sessionRepo, application.VerifyPassword, deps.NewToken, deps.Now, cfg.SessionTTL, logger)
	a.hours = application.NewHoursServiceWithLogger(hoursRepo, deps.NewID, logger)
	a.policy = application.NewPolicyServiceWithLogger(policyRepo, deps.Now, logger)
	a.tables = application.NewTableServiceWithLogger(tableRepo, reservationRepo, deps.NewID, deps.Now, logger).
		WithLocation(loc)
	a.reservations = application.NewReservationServiceWithLogger(reservationRepo, tableRepo, a.hours, a.policy, deps.NewID, deps.Now, logger).
		WithLocation(loc).
		WithNotifier(deps.Notifier)
	if deps.Metrics != nil {
		a.reservations = a.reservations.WithMetrics(deps.Metrics)
	}
	a.reports = application.NewReportServiceWithLogger(reservationRepo, tableRepo, accountStore, deps.Now, logger).
		WithLocation(loc).
		WithCache(reportCacheTTL)

	middleware := []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)}
	var metricsHandler http.Handler
	if deps.Metrics != nil {
		middleware = append(middleware, deps.Metrics.Middleware)
		metricsHandler = deps.Metrics.Handler()
	}

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(a.auth, logger),
		Accounts:     httptransport.NewAccountHandler(a.accounts, logger),
		Reservations: httptransport.NewReservationHandler(a.reservations, a.policy, a.tables, logger),
		Tables:       httptransport.NewTableHandler(a.tables, logger),
		Config:       httptransport.NewConfigHandler(a.hours, a.policy, logger),
		Reports:      httptransport.NewReportHandler(a.reports, logger),
		Metrics:      metricsHandler,
		Authenticate: httptransport.RequireSession(a.auth, logger),
		RateLimit:    httptransport.RateLimit(httptransport.NewClientLimiter(cfg.BookingRatePerMinute), logger),
		Middleware:   middleware,
	})
	return a
}

func (a *app) seedServices() seed.Services {
	return seed.Services{
		Policy:   a.policy,
		Hours:    a.hours,
		Tables:   a.tables,
		Accounts: a.accounts,
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
