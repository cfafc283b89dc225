package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	domrepo "KOLStats/internal/domain/repository"
	"KOLStats/pkg/config"
	xhttp "KOLStats/pkg/http"
	pkgkafka "KOLStats/pkg/kafka"
	applogger "KOLStats/pkg/logger"
	"KOLStats/pkg/queue"
)

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	queue      *queue.RedisQueue
	publisher  domrepo.EventPublisher
	closers    []namedCloser
}

type Option func(*App)

func WithConsumer(c *pkgkafka.Consumer) Option {
	return func(a *App) { a.consumer = c }
}

func WithQueue(q *queue.RedisQueue) Option {
	return func(a *App) { a.queue = q }
}

// WithPublisher sets the event publisher closed after the log collector is flushed.
func WithPublisher(p domrepo.EventPublisher) Option {
	return func(a *App) { a.publisher = p }
}

// WithCloser registers an infrastructure client closed last, in registration order.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, namedCloser{name: name, c: c})
		}
	}
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, httpServer *xhttp.Server, opts ...Option) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{cfg: cfg, l: l, httpServer: httpServer}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts every component and blocks until ctx is done, a shutdown signal arrives
// or the HTTP listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			a.shutdown()
			return fmt.Errorf("start queue: %w", err)
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.shutdown()
			return fmt.Errorf("start kafka consumer: %w", err)
		}
	}

	errCh := a.httpServer.Start()
	a.l.Info("kolstats started", applogger.String("environment", a.cfg.Environment),
		applogger.String("source", a.cfg.Source.Type), applogger.String("cache", a.cfg.Cache.Type))

	var runErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
	case err, ok := <-errCh:
		if ok && err != nil {
			a.l.Error("http server failed", applogger.Error(err))
			runErr = err
		}
	}

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// shutdown stops components in dependency order: inbound traffic first, then
// background consumers, then outbound clients.
func (a *App) shutdown() error {
	timeout := a.httpServer.ShutdownTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.l.Warn("queue stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	// flushes pending aggregated errors through the publisher
	a.l.RemoveCollector()
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	for _, nc := range a.closers {
		if err := nc.c.Close(); err != nil {
			a.l.Warn("close error", applogger.String("component", nc.name), applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}
