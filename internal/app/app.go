// Package app boots the bundled game server: it resolves configuration,
// builds the logger and serves the websocket authority until the context is
// cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ninepins/examples/tictactoe"
	"ninepins/game"
	"ninepins/master"
	"ninepins/server"
)

const shutdownGrace = 5 * time.Second

// Run serves the configured games until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	handler := server.NewHandler(hostedGames(), server.Config{
		Registry: master.NewRegistry(),
		Logger:   logger,
	})

	mux := http.NewServeMux()
	mux.Handle(cfg.WSPath, handler)

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}
	errs := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.Addr),
			zap.String("path", cfg.WSPath))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// hostedGames lists the game definitions the server exposes.
func hostedGames() []game.Game {
	return []game.Game{tictactoe.Game()}
}

func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
