// apps/go-server/main.go
//
// Entry point for the bowling Go server.
// Responsibilities:
//   - Load configuration (.env, environment, flags).
//   - Configure zerolog.
//   - Open storage (SQLite with migrations, or in-memory).
//   - Wire the summary client, game lifecycle and HTTP server.
//   - Shut down gracefully on SIGINT/SIGTERM.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/robalobadob/bowling/apps/go-server/internal/config"
	"github.com/robalobadob/bowling/apps/go-server/internal/httpserver"
	"github.com/robalobadob/bowling/apps/go-server/internal/lifecycle"
	"github.com/robalobadob/bowling/apps/go-server/internal/store"
	"github.com/robalobadob/bowling/apps/go-server/internal/summary"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatal().Err(err).Msg("failed to read .env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	flag.StringVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	flag.StringVar(&cfg.Storage, "storage", cfg.Storage, "storage backend: sqlite or memory")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	setupLogging(cfg)

	st, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("storage", cfg.Storage).Msg("failed to open storage")
	}
	defer closeStore()

	var sm summary.Summarizer = summary.Disabled{}
	if cfg.SummariesEnabled() {
		sm = summary.NewOpenAI(summary.OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			BaseURL:     cfg.OpenAIBaseURL,
			Temperature: cfg.SummaryTemperature,
			Timeout:     cfg.SummaryTimeout,
		})
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set; summaries disabled")
	}

	srv := httpserver.New(lifecycle.New(st, sm), httpserver.Options{
		ClientOrigin:   cfg.ClientOrigin,
		RequestTimeout: cfg.RequestTimeout,
		SummaryTimeout: cfg.SummaryTimeout,
	})

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.Storage).Msg("starting go-server")
		errc <- srv.Start(":" + cfg.Port)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exited")
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}

// setupLogging applies level and output format to the global logger.
func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// openStore returns the configured store and a close func.
func openStore(cfg config.Config) (store.Store, func(), error) {
	if cfg.Storage == config.StorageMemory {
		return store.NewMemoryStore(), func() {}, nil
	}
	db, err := openDB(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store.NewSQLite(db), func() { _ = db.Close() }, nil
}
