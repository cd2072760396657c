package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/garageops/reserva/internal/clock"
	"github.com/garageops/reserva/internal/config"
	"github.com/garageops/reserva/internal/httpserver"
	"github.com/garageops/reserva/internal/ledger"
	"github.com/garageops/reserva/internal/metrics"
	"github.com/garageops/reserva/internal/notify"
	"github.com/garageops/reserva/internal/pricing"
	"github.com/garageops/reserva/internal/receipts"
	"github.com/garageops/reserva/internal/registry"
	"github.com/garageops/reserva/internal/workflow"
	"github.com/garageops/reserva/migrations"
)

var version = "source"

func setLogger() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	setLogger()
	log.Info().Msgf("starting reserva version: %s", version)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("ping db")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrations.Apply(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	led := ledger.NewPGLedger(db)
	reg := registry.New(led, cfg.TicketInventorySize)
	log.Info().Int("inventorySize", cfg.TicketInventorySize).Msg("ticket registry initialized")

	var hooks []workflow.Hook
	if len(cfg.KafkaBrokers) > 0 {
		dispatcher, err := notify.NewKafkaDispatcher(notify.DispatcherConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaTopic,
			CalendarTopic: cfg.CalendarTopic,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("kafka dispatcher")
		}
		defer dispatcher.Close()
		hooks = append(hooks, dispatcher)
	} else {
		log.Warn().Msg("no Kafka brokers configured; claim notifications disabled")
	}
	if cfg.ReceiptBucket != "" {
		archiver, err := receipts.NewS3Archiver(ctx, cfg.ReceiptBucket, cfg.ReceiptPrefix)
		if err != nil {
			log.Fatal().Err(err).Msg("receipt archiver")
		}
		hooks = append(hooks, archiver)
	} else {
		log.Warn().Msg("no receipt bucket configured; receipt archiving disabled")
	}

	srv := httpserver.New(httpserver.Options{
		Ledger:        led,
		Registry:      reg,
		Pricer:        pricing.Default(),
		Clock:         clock.NewSystem(),
		Currency:      cfg.Currency,
		CommitTimeout: cfg.CommitTimeout,
		Hooks:         hooks,
		Log:           log.Logger,
	})

	mux := http.NewServeMux()
	metrics.Register(mux)
	mux.Handle("/", srv.Router())

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("reserva listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown")
	}
}
