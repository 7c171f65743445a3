package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/you/ratelink/internal/config"
)

// Run wires the container, replays any persisted session and blocks until
// the process is told to stop.
func Run(cfg *config.Config) error {
	container, err := NewContainer(cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	logger := container.Logger
	logger.Info("starting",
		zap.String("app", cfg.AppName),
		zap.String("env", cfg.Env),
		zap.String("backend", cfg.BackendBaseURL),
		zap.String("storage", cfg.StorageBackend))

	if err := container.SessionSvc.Restore(context.Background()); err != nil {
		logger.Warn("session restore failed", zap.Error(err))
	}
	state := container.SessionSvc.State()
	if state.Authenticated {
		logger.Info("session restored",
			zap.String("user_id", state.Session.User.ID),
			zap.String("role", string(state.Session.User.Role)))
	} else {
		logger.Info("no session to restore, waiting for login")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	sig := <-stop
	logger.Info("shutting down", zap.String("signal", sig.String()))
	return nil
}
