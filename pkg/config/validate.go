// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/telekom/kestrel/internal/logger"
)

// maxRetries bounds the transmission retries of a single probe
const maxRetries = 5

// Validate validates the startup config
func (c *Config) Validate(ctx context.Context) (err error) {
	log := logger.FromContext(ctx)

	if vErr := c.Ping.Validate(); vErr != nil {
		log.ErrorContext(ctx, "The ping configuration is invalid", "error", vErr)
		err = errors.Join(err, vErr)
	}

	if vErr := c.Traceroute.Validate(); vErr != nil {
		log.ErrorContext(ctx, "The traceroute configuration is invalid", "error", vErr)
		err = errors.Join(err, vErr)
	}

	if c.Retry.Count < 0 || c.Retry.Count > maxRetries {
		log.ErrorContext(ctx, "The amount of retries should be between 0 and 5", "retryCount", c.Retry.Count)
		err = errors.Join(err, ErrInvalidConfig{Field: "retry.count", Reason: fmt.Sprintf("must be between 0 and %d", maxRetries)})
	}

	if c.Retry.Delay < 0 {
		log.ErrorContext(ctx, "The retry delay should be equal or above 0", "delay", c.Retry.Delay)
		err = errors.Join(err, ErrInvalidConfig{Field: "retry.delay", Reason: "must not be negative"})
	}

	if !c.Output.IsValid() {
		log.ErrorContext(ctx, "The output format is not supported", "output", c.Output)
		err = errors.Join(err, ErrInvalidConfig{Field: "output", Reason: fmt.Sprintf("unsupported format %q, use text, json or yaml", c.Output)})
	}

	if c.HasTelemetry() {
		if vErr := c.Telemetry.Validate(ctx); vErr != nil {
			log.ErrorContext(ctx, "The telemetry configuration is invalid")
			err = errors.Join(err, vErr)
		}
	}

	if vErr := c.Api.Validate(); vErr != nil {
		log.ErrorContext(ctx, "The api configuration is invalid")
		err = errors.Join(err, vErr)
	}

	if err != nil {
		return fmt.Errorf("validation of configuration failed: %w", err)
	}
	return nil
}
