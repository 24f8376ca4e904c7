package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "GoldPredict/pkg/http"
	pkgkafka "GoldPredict/pkg/kafka"
	applogger "GoldPredict/pkg/logger"
)

// Option configures App.
type Option func(*App)

type closer struct {
	name string
	fn   func() error
}

// App runs the HTTP server and/or the Kafka sink until the context is
// cancelled or the process receives SIGINT/SIGTERM, then shuts everything down
// in registration order.
type App struct {
	log             *applogger.Logger
	httpServer      *xhttp.Server
	consumer        *pkgkafka.Consumer
	handler         pkgkafka.MessageHandler
	closers         []closer
	shutdownTimeout time.Duration
}

// WithLogger sets the lifecycle logger.
func WithLogger(l *applogger.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.log = l
		}
	}
}

// WithHTTPServer serves s while the app runs.
func WithHTTPServer(s *xhttp.Server) Option {
	return func(a *App) { a.httpServer = s }
}

// WithConsumer runs c with h registered while the app runs.
func WithConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) Option {
	return func(a *App) {
		a.consumer = c
		a.handler = h
	}
}

// WithCloser registers fn to run on shutdown after the server and consumer stop.
func WithCloser(name string, fn func() error) Option {
	return func(a *App) {
		if fn != nil {
			a.closers = append(a.closers, closer{name: name, fn: fn})
		}
	}
}

// WithShutdownTimeout bounds the consumer drain on shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.shutdownTimeout = d
		}
	}
}

// New creates an App.
func New(opts ...Option) *App {
	a := &App{
		log:             applogger.Nop(),
		shutdownTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the configured components and blocks until ctx is done, a
// termination signal arrives or the HTTP listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.consumer != nil {
		if a.handler == nil {
			return errors.New("app: consumer configured without a handler")
		}
		a.consumer.RegisterHandler(a.handler)
		if err := a.consumer.Start(); err != nil {
			a.shutdown()
			return fmt.Errorf("start consumer: %w", err)
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.handler.Topic()))
	}

	var serverErrs <-chan error
	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.shutdown()
			return fmt.Errorf("start http server: %w", err)
		}
		serverErrs = a.httpServer.Errors()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err := <-serverErrs:
		runErr = fmt.Errorf("http server: %w", err)
	}

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// shutdown stops the server, drains the consumer, then runs the closers.
// It keeps going past individual failures and returns the first one.
func (a *App) shutdown() error {
	a.log.Info("shutting down")
	var first error
	keep := func(err error) {
		if first == nil {
			first = err
		}
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(context.Background()); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
			keep(err)
		}
	}

	if a.consumer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			keep(err)
		}
		cancel()
	}

	for _, c := range a.closers {
		if err := c.fn(); err != nil {
			a.log.Warn("close error", applogger.String("component", c.name), applogger.Error(err))
			keep(fmt.Errorf("close %s: %w", c.name, err))
		}
	}

	a.log.Info("shutdown complete")
	return first
}
