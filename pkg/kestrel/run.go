// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package kestrel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/telekom/kestrel/internal/logger"
	"github.com/telekom/kestrel/pkg/api"
	"github.com/telekom/kestrel/pkg/config"
	"github.com/telekom/kestrel/pkg/telemetry"
)

const shutdownTimeout = time.Second * 10

// Job is a single probing session run by the kestrel.
// It must return once the context is canceled.
type Job func(ctx context.Context) error

// Kestrel runs a probing job alongside its telemetry components
type Kestrel struct {
	// config is the startup configuration of the kestrel
	config *config.Config
	// api serves the metrics while the job is running
	api api.API
	// telemetry holds the prometheus registry and the tracer provider
	telemetry telemetry.Provider
	// cErr is used to handle non-recoverable errors of the api
	cErr chan error
	// shutOnce is used to ensure that the shutdown function is only called once
	shutOnce sync.Once
}

// New creates a new kestrel from a given config
func New(cfg *config.Config, version string) *Kestrel {
	t := telemetry.New(cfg.Telemetry, version)

	return &Kestrel{
		config:    cfg,
		api:       api.New(cfg.Api, t.GetRegistry()),
		telemetry: t,
		cErr:      make(chan error, 1),
		shutOnce:  sync.Once{},
	}
}

// Register adds the collectors of a session to the exposed metrics
func (k *Kestrel) Register(cs ...prometheus.Collector) error {
	registry := k.telemetry.GetRegistry()
	for _, c := range cs {
		if err := registry.Register(c); err != nil {
			return fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return nil
}

// Run initializes the tracing, starts the api and runs the job.
// It returns the error of the job once it finished and all components
// are shut down. A failing api cancels the job.
func (k *Kestrel) Run(ctx context.Context, job Job) error {
	ctx, cancel := logger.NewContextWithLogger(ctx)
	log := logger.FromContext(ctx)
	defer cancel()

	err := k.telemetry.InitTracing(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	go func() {
		k.cErr <- k.api.Run(ctx)
	}()

	cJob := make(chan error, 1)
	go func() {
		cJob <- job(ctx)
	}()

	var errAPI error
	for {
		select {
		case err := <-k.cErr:
			if err != nil {
				log.ErrorContext(ctx, "Non-recoverable error in kestrel component", "error", err)
				errAPI = err
				cancel()
			}
		case err := <-cJob:
			k.shutdown(ctx)
			if errAPI != nil {
				return errAPI
			}
			return err
		}
	}
}

// shutdown shuts down all managed components gracefully.
func (k *Kestrel) shutdown(ctx context.Context) {
	errC := ctx.Err()
	log := logger.FromContext(ctx)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	k.shutOnce.Do(func() {
		log.DebugContext(ctx, "Shutting down kestrel")
		var sErrs ErrShutdown
		sErrs.errAPI = k.api.Shutdown(ctx)
		sErrs.errMetrics = k.telemetry.Shutdown(ctx)

		if sErrs.HasError() {
			log.ErrorContext(ctx, "Failed to shutdown gracefully", "contextError", errC, "errors", sErrs)
		}
	})
}
