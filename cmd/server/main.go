// Package main is the entry point for the project intake chat service.
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

	"github.com/gigdesk/intake/internal/chat"
	"github.com/gigdesk/intake/internal/config"
	"github.com/gigdesk/intake/internal/llm"
	"github.com/gigdesk/intake/internal/schema"
	"github.com/gigdesk/intake/internal/server"
	"github.com/gigdesk/intake/internal/store"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize message store")
	}
	defer messages.Close()

	completer, err := llm.NewClient(ctx, cfg.APIKey, cfg.ModelName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create LLM client")
	}

	def, err := loadSchema(cfg.SchemaPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load schema document")
	}
	logger.Info().Str("variant", string(def.Variant())).Msg("schema document loaded")

	trigger := chat.NewTrigger(chat.Mode(cfg.TriggerMode), cfg.TriggerWords)
	chain := chat.NewChain(completer, messages, def, trigger, logger)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(chain, messages, logger).Handler(),
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
		cancel()
	}()

	logger.Info().Str("addr", cfg.ListenAddr).Str("db", cfg.DBType).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

// newStore selects the message-store backend and prepares its schema.
func newStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.DBType == "postgres" {
		st, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.InitSchema(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	}

	st, err := store.NewSQLiteStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.InitSchema(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// loadSchema reads the configured schema document, falling back to the
// embedded default.
func loadSchema(path string) (*schema.Definition, error) {
	if path == "" {
		return schema.Default()
	}
	return schema.Load(path)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
