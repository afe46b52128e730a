package server

import (
	"context"
	"fmt"
	"time"

	xhttp "ArbBoard/pkg/http"
	pkgkafka "ArbBoard/pkg/kafka"
	applogger "ArbBoard/pkg/logger"
)

// Worker is a background loop owned by the App.
type Worker interface {
	Start(ctx context.Context)
	Stop()
}

// App owns the long-running pieces of the service. HTTP stops accepting
// before workers and the consumer stop; clients are closed by the caller
// afterwards.
type App struct {
	logger          *applogger.Logger
	httpServer      *xhttp.Server
	consumer        *pkgkafka.Consumer
	handlers        []pkgkafka.MessageHandler
	workers         []Worker
	shutdownTimeout time.Duration
}

type Option func(*App)

// WithConsumer runs c with the given handlers alongside the HTTP server.
func WithConsumer(c *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) Option {
	return func(a *App) {
		a.consumer = c
		a.handlers = handlers
	}
}

// WithWorker runs w for the lifetime of the App.
func WithWorker(w Worker) Option {
	return func(a *App) { a.workers = append(a.workers, w) }
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.shutdownTimeout = d
		}
	}
}

func New(logger *applogger.Logger, httpServer *xhttp.Server, opts ...Option) *App {
	a := &App{
		logger:          logger,
		httpServer:      httpServer,
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts everything and blocks until ctx is cancelled, then shuts down.
func (a *App) Run(ctx context.Context) error {
	if a.consumer != nil {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
		}
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.shutdown()
		return err
	}
	for _, w := range a.workers {
		w.Start(ctx)
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	a.shutdown()
	return nil
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}
	for _, w := range a.workers {
		w.Stop()
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
}
