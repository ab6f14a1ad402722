package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/jobchain/internal/ctxlog"
	"github.com/vk/jobchain/internal/engine"
	"github.com/vk/jobchain/internal/loader"
	"github.com/vk/jobchain/internal/registry"
	"github.com/vk/jobchain/internal/statestore"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	ctx        context.Context
	config     *Config
	httpServer *http.Server
	health     healthState

	modules   []registry.Module
	sources   []loader.Source
	store     statestore.Store
	notifiers []engine.Notifier
	closers   []func() error
}

// Option customises an App, mostly for tests and embedding.
type Option func(*App)

// WithModules replaces the built-in job modules.
func WithModules(modules ...registry.Module) Option {
	return func(a *App) { a.modules = modules }
}

// WithSources replaces the search roots from the configuration.
func WithSources(sources ...loader.Source) Option {
	return func(a *App) { a.sources = sources }
}

// WithStore replaces the configured state store.
func WithStore(store statestore.Store) Option {
	return func(a *App) { a.store = store }
}

// WithNotifier adds a notifier next to the built-in ones.
func WithNotifier(n engine.Notifier) Option {
	return func(a *App) { a.notifiers = append(a.notifiers, n) }
}

// NewApp is the constructor for the main application. It returns an App
// with its own isolated logger.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:   outW,
		logger: logger,
		ctx:    ctx,
		config: cfg,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Close releases everything opened by Run, in reverse order.
func (a *App) Close() error {
	var errs []error
	errs = append(errs, a.closeHealthCheckServer())
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
