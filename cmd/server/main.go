package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"testdrive/internal/alerts"
	"testdrive/internal/platform/config"
	"testdrive/internal/platform/httpserver"
	"testdrive/internal/platform/logger"
	"testdrive/internal/platform/metrics"
	platformredis "testdrive/internal/platform/redis"
	"testdrive/internal/position"
	positionHandler "testdrive/internal/position/handler"
	"testdrive/internal/refdata"
	"testdrive/internal/report"
	reportHandler "testdrive/internal/report/handler"
	"testdrive/internal/restrictions"
	restrictionsHandler "testdrive/internal/restrictions/handler"
	httptransport "testdrive/internal/transport/http"
	"testdrive/internal/trial"
	trialHandler "testdrive/internal/trial/handler"
)

// main wires the dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	health := map[string]httptransport.HealthChecker{}

	// Stores: postgres when configured, in-memory otherwise.
	var (
		trialStore    trial.Store
		positionStore position.Store
		directory     refdata.Directory
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		trialStore = trial.NewPostgres(db)
		positionStore = position.NewPostgres(db)
		directory = refdata.NewPostgres(db)
		health["database"] = db.Ping
		log.Info("using postgres stores")
	} else {
		trialStore = trial.NewMemoryStore()
		positionStore = position.NewMemoryStore()
		directory = seedDemoDirectory()
		log.Warn("no DATABASE_URL set, using in-memory stores with demo data")
	}

	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}

	// Alert pipeline: kafka when brokers are configured, log-only otherwise.
	var publisher alerts.Publisher = alerts.NewLogPublisher(log)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := alerts.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.AlertsTopic)
		if err != nil {
			return err
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Info("publishing alerts to kafka", "topic", cfg.AlertsTopic)
	}
	dispatcher := alerts.NewDispatcher(publisher, cfg.AlertQueueSize, log, alerts.WithMetrics(m))

	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("alert dispatcher stopped", "error", err)
		}
	}()

	rules := restrictions.NewCache(
		restrictions.NewHTTPClient(cfg.RestrictionsURL),
		cfg.RestrictionsTTL,
		restrictions.WithMetrics(m),
	)

	trialSvc := trial.NewService(trialStore, directory, trial.WithMetrics(m))

	positionOpts := []position.ServiceOption{
		position.WithNotifier(dispatcher),
		position.WithMetrics(m),
	}
	if redisClient != nil {
		defer redisClient.Close()
		positionOpts = append(positionOpts, position.WithLatestStore(position.NewRedisLatest(redisClient.Client)))
		health["redis"] = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(pingCtx)
		}
		log.Info("mirroring latest positions to redis")
	}
	positionSvc := position.NewService(directory, trialSvc, positionStore, rules, log, positionOpts...)

	reportSvc := report.NewService(directory, trialStore, positionStore)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:   log,
		Metrics:  m,
		Gatherer: prometheus.DefaultGatherer,
		Health:   health,
	},
		trialHandler.New(trialSvc, log),
		positionHandler.New(positionSvc, log),
		reportHandler.New(reportSvc, log),
		restrictionsHandler.New(rules, log),
	)

	srv := httpserver.New(cfg.Addr, router)
	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting testdrive server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// The dispatcher drains buffered alerts once its context is cancelled.
	select {
	case <-dispatcherDone:
	case <-shutdownCtx.Done():
		log.Warn("dispatcher did not drain in time")
	}
	return nil
}

// seedDemoDirectory backs local development with a small fixed fleet.
func seedDemoDirectory() *refdata.MemoryDirectory {
	d := refdata.NewMemoryDirectory()
	d.PutVehicle(refdata.Vehicle{ID: 1, Plate: "AB123CD", ModelID: 1})
	d.PutVehicle(refdata.Vehicle{ID: 2, Plate: "XY987ZT", ModelID: 2})
	d.PutBuyer(refdata.Buyer{ID: 1, FullName: "Ana Torres", LicenseExpiry: time.Now().AddDate(2, 0, 0)})
	d.PutBuyer(refdata.Buyer{ID: 2, FullName: "Luis Ferro", Restricted: true, LicenseExpiry: time.Now().AddDate(1, 0, 0)})
	d.PutEmployee(refdata.Employee{ID: 1, FullName: "Marta Diaz"})
	return d
}
