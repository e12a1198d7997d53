package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/whist/go/internal/dbconfig"
	"github.com/mcdev12/whist/go/internal/whist/outbox"
	"github.com/mcdev12/whist/go/internal/whist/stats"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("create pgx pool")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}
	log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("connected to database")

	repo := stats.NewRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migrate stats schema")
	}

	consumerCfg := stats.DefaultConsumerConfig()
	if url := os.Getenv("NATS_URL"); url != "" {
		consumerCfg.Stream.URL = url
	}
	nc, err := outbox.Connect(consumerCfg.Stream, "whist-stats")
	if err != nil {
		log.Fatal().Err(err).Msg("connect to NATS")
	}
	defer nc.Close()
	js, err := jetstream.New(nc)
	if err != nil {
		log.Fatal().Err(err).Msg("create JetStream context")
	}

	router := mux.NewRouter()
	stats.NewHandler(repo).RegisterRoutes(router)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !nc.IsConnected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}
	srv := &http.Server{Addr: ":" + port, Handler: router}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("stats api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("stats api failed")
			stop()
		}
	}()

	if err := stats.NewConsumer(js, repo, consumerCfg).Run(ctx); err != nil {
		log.Error().Err(err).Msg("stats consumer failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("stats api shutdown")
	}
	log.Info().Msg("graceful shutdown complete")
}
