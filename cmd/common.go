// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/telekom/kestrel/internal/logger"
	"github.com/telekom/kestrel/internal/probe"
	"github.com/telekom/kestrel/pkg/config"
)

// newProber creates the transport of a session.
var newProber = probe.NewProber

// resolver looks up the target of a session.
var resolver probe.Resolver = net.DefaultResolver

// newContext returns the context of a command run. It carries the logger
// and is canceled on SIGINT and SIGTERM.
func newContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	return logger.IntoContext(ctx, logger.NewLogger()), stop
}

// loadConfig merges the defaults with the config file, the environment
// and the command line flags and validates the result.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg := config.New()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(ctx); err != nil {
		return nil, err
	}
	return cfg, nil
}

// interrupted reports whether a session was stopped by a signal.
// Its partial results are still rendered.
func interrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}

// sessionError translates the error of a finished session for the user.
func sessionError(err error) error {
	switch {
	case err == nil, interrupted(err):
		return nil
	case errors.Is(err, probe.ErrPermission):
		return fmt.Errorf("%w: run kestrel as root or grant it the CAP_NET_RAW capability", err)
	default:
		return err
	}
}
