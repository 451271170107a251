// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/telekom/kestrel/internal/logger"
)

const readHeaderTimeout = 5 * time.Second

var _ API = (*api)(nil)

// API serves the metrics of a running session.
type API interface {
	// Run serves the api until Shutdown is called. It returns nil
	// if no listening address is configured.
	Run(ctx context.Context) error
	// Shutdown gracefully stops the api server.
	Shutdown(ctx context.Context) error
}

// Config is the configuration of the metrics endpoint.
type Config struct {
	// ListeningAddress is the host:port the api listens on.
	// The api is disabled if empty.
	ListeningAddress string `yaml:"address" mapstructure:"address"`
}

// Enabled reports whether an address to listen on is configured.
func (c *Config) Enabled() bool {
	return c.ListeningAddress != ""
}

// Validate checks that the listening address is a valid host:port.
func (c *Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.ListeningAddress); err != nil {
		return &ErrInvalidAddress{Address: c.ListeningAddress, Err: err}
	}
	return nil
}

type api struct {
	config   Config
	registry *prometheus.Registry
	server   *http.Server
	router   chi.Router
}

// New creates a new api serving the collectors of the given registry.
func New(cfg Config, registry *prometheus.Registry) API {
	r := chi.NewRouter()
	return &api{
		config:   cfg,
		registry: registry,
		server:   &http.Server{Addr: cfg.ListeningAddress, Handler: r, ReadHeaderTimeout: readHeaderTimeout},
		router:   r,
	}
}

// Run registers the routes and serves them on the configured address.
func (a *api) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	if !a.config.Enabled() {
		log.DebugContext(ctx, "No listening address configured, api disabled")
		return nil
	}

	a.registerRoutes(ctx)

	log.InfoContext(ctx, "Serving metrics", "address", a.config.ListeningAddress)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.ErrorContext(ctx, "Failed to serve api", "error", err)
		return fmt.Errorf("%w: %w", ErrServeAPI, err)
	}
	return nil
}

// Shutdown gracefully stops the api server.
func (a *api) Shutdown(ctx context.Context) error {
	if err := a.server.Shutdown(ctx); err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "Failed to shutdown api server", "error", err)
		return fmt.Errorf("failed to shutdown api server: %w", err)
	}
	return nil
}

// registerRoutes mounts the metrics and health endpoints on the router.
func (a *api) registerRoutes(ctx context.Context) {
	a.router.Use(logger.Middleware(ctx))
	a.router.Use(middleware.Recoverer)

	a.router.Get("/healthz", handleHealth)
	a.router.Handle("/metrics", promhttp.HandlerFor(
		a.registry,
		promhttp.HandlerOpts{Registry: a.registry},
	))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		logger.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to write response", "error", err)
	}
}
