// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/telekom/kestrel/internal/ping"
	"github.com/telekom/kestrel/pkg/config"
	"github.com/telekom/kestrel/pkg/kestrel"
)

// NewCmdPing creates the ping command
func NewCmdPing() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ping [flags] destination",
		Short: "Send ICMP echo requests to a host",
		Long: "Ping sends ICMP echo requests to the destination and reports every reply.\n" +
			"The run ends after count requests, on the first unanswered request or on interrupt,\n" +
			"followed by the round-trip statistics.",
		Args: cobra.ExactArgs(1),
		RunE: runPing,
	}

	cmd.Flags().IntP("count", "c", ping.DefaultCount, "stop after sending count requests, negative for no limit")
	cmd.Flags().DurationP("interval", "i", ping.DefaultInterval, "wait between sending requests")
	cmd.Flags().IntP("size", "s", ping.DefaultPayloadSize, "number of payload bytes per request")
	cmd.Flags().DurationP("timeout", "t", ping.DefaultTimeout, "time to wait for a reply")

	bindFlags(cmd, map[string]string{
		"count":    "ping.count",
		"interval": "ping.interval",
		"size":     "ping.payloadSize",
		"timeout":  "ping.timeout",
	}, false)

	return cmd
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx, stop := newContext(cmd)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printer := &pingPrinter{w: out, payloadSize: cfg.Ping.PayloadSize}
	sOpts := []ping.SessionOption{ping.WithResolver(resolver)}
	if cfg.Output == config.OutputText {
		sOpts = append(sOpts, ping.WithStart(printer.start), ping.WithReporter(printer.event))
	}
	s := ping.NewSession(newProber(cfg.Retry), cfg.Ping, sOpts...)

	k := kestrel.New(cfg, cmd.Root().Version)
	if err = k.Register(s.Collectors()...); err != nil {
		return err
	}

	var stats ping.Statistics
	err = k.Run(ctx, func(ctx context.Context) (err error) {
		stats, err = s.Run(ctx, args[0])
		return err
	})
	if err != nil && !interrupted(err) {
		return sessionError(err)
	}
	if !stats.Address.IsValid() {
		// interrupted before the target was resolved
		return nil
	}

	if cfg.Output == config.OutputText {
		printer.summary(stats)
		return nil
	}
	return encode(out, cfg.Output, stats)
}
