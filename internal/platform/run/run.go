package run

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultShutdownTimeout bounds graceful shutdown of a service.
const DefaultShutdownTimeout = 10 * time.Second

type Runner struct {
	Logger *zap.Logger
}

func New(log *zap.Logger) *Runner {
	return &Runner{Logger: log}
}

// WithSignals runs start until it returns or SIGINT/SIGTERM arrives, then
// calls shutdown with a bounded context. It returns the process exit code.
func (r *Runner) WithSignals(start func(ctx context.Context) error, shutdown func(context.Context) error) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return r.run(ctx, start, shutdown)
}

func (r *Runner) run(ctx context.Context, start func(ctx context.Context) error, shutdown func(context.Context) error) int {
	errCh := make(chan error, 1)
	go func() {
		errCh <- start(ctx)
	}()

	select {
	case <-ctx.Done():
		r.Logger.Info("shutdown signal received")
		r.graceful(shutdown)
		return 0
	case err := <-errCh:
		r.graceful(shutdown)
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return 0
		}
		r.Logger.Error("service exited with error", zap.Error(err))
		return 1
	}
}

func (r *Runner) graceful(shutdown func(context.Context) error) {
	if shutdown == nil {
		return
	}
	c, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := shutdown(c); err != nil {
		r.Logger.Warn("graceful shutdown", zap.Error(err))
	}
}

func Exit(code int) {
	os.Exit(code)
}
