package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"eventdesk/internal/audit"
	audithandler "eventdesk/internal/audit/handler"
	"eventdesk/internal/extsource"
	"eventdesk/internal/jwtauth"
	"eventdesk/internal/platform/config"
	"eventdesk/internal/platform/httpserver"
	"eventdesk/internal/platform/logger"
	platformmetrics "eventdesk/internal/platform/metrics"
	platformredis "eventdesk/internal/platform/redis"
	reconcilehandler "eventdesk/internal/reconcile/handler"
	reconcilemetrics "eventdesk/internal/reconcile/metrics"
	reconcileservice "eventdesk/internal/reconcile/service"
	reghandler "eventdesk/internal/registration/handler"
	regmetrics "eventdesk/internal/registration/metrics"
	regservice "eventdesk/internal/registration/service"
	regstore "eventdesk/internal/registration/store"
	httptransport "eventdesk/internal/transport/http"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx := context.Background()

	// Storage: postgres when configured, in-memory otherwise so local
	// development needs no database.
	var regStore regstore.Store = regstore.NewMemory()
	var auditStore audit.Store = audit.NewMemoryStore()
	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}

		pgRegistrants := regstore.NewPostgres(db)
		if err := pgRegistrants.EnsureSchema(ctx); err != nil {
			return err
		}
		pgAudit := audit.NewPostgresStore(db)
		if err := pgAudit.EnsureSchema(ctx); err != nil {
			return err
		}
		regStore = pgRegistrants
		auditStore = pgAudit
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
	}

	cache, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	defer cache.Close()

	var sinks []audit.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}
	auditPublisher := audit.NewPublisher(auditStore, log, sinks...)

	tokens := jwtauth.New(cfg.JWTSigningKey, "eventdesk")
	httpMetrics := platformmetrics.New()

	registrants, err := regservice.New(regStore,
		regservice.WithLogger(log),
		regservice.WithMetrics(regmetrics.New()),
		regservice.WithAudit(auditPublisher),
	)
	if err != nil {
		return err
	}

	fetcher := extsource.NewFetcher(cfg.MediaBaseURL, log)
	reconciler, err := reconcileservice.New(cfg.ExternalSourceDSN, fetcher, regStore,
		reconcileservice.WithLogger(log),
		reconcileservice.WithMetrics(reconcilemetrics.New()),
		reconcileservice.WithAudit(auditPublisher),
		reconcileservice.WithEventLister(extsource.NewEventLister(cache, log)),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Handlers: []httptransport.Registrar{
			reghandler.New(registrants, log, httpMetrics, tokens),
			reconcilehandler.New(reconciler, log, httpMetrics, tokens),
			audithandler.New(auditPublisher, log, httpMetrics, tokens),
		},
		DB:    db,
		Cache: cache,
	})

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting eventdesk", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
