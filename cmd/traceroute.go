// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/telekom/kestrel/internal/traceroute"
	"github.com/telekom/kestrel/pkg/config"
	"github.com/telekom/kestrel/pkg/kestrel"
)

// NewCmdTraceroute creates the traceroute command
func NewCmdTraceroute() *cobra.Command {
	var loss bool

	cmd := &cobra.Command{
		Use:   "traceroute [flags] host",
		Short: "Print the route ICMP packets take to a host",
		Long: "Traceroute sends ICMP echo requests with an increasing time-to-live and reports\n" +
			"the router answering at every hop until the host itself replies.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraceroute(cmd, args, loss)
		},
	}

	cmd.Flags().BoolP("numeric", "n", false, "print hop addresses numerically, without reverse lookups")
	cmd.Flags().IntP("queries", "q", traceroute.DefaultQueries, "number of probes per hop")
	cmd.Flags().IntP("max-hops", "m", traceroute.DefaultMaxHops, "maximum time-to-live")
	cmd.Flags().DurationP("wait", "w", traceroute.DefaultTimeout, "time to wait for a reply to a probe")
	cmd.Flags().IntP("size", "s", traceroute.DefaultPayloadSize, "number of payload bytes per probe")
	cmd.Flags().BoolVarP(&loss, "summary", "S", false, "print the share of unanswered probes of every hop")

	bindFlags(cmd, map[string]string{
		"numeric":  "traceroute.numeric",
		"queries":  "traceroute.queries",
		"max-hops": "traceroute.maxHops",
		"wait":     "traceroute.timeout",
		"size":     "traceroute.payloadSize",
	}, false)

	return cmd
}

func runTraceroute(cmd *cobra.Command, args []string, loss bool) error {
	ctx, stop := newContext(cmd)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printer := &tracePrinter{w: out, opts: cfg.Traceroute, loss: loss}
	sOpts := []traceroute.SessionOption{traceroute.WithResolver(resolver)}
	if cfg.Output == config.OutputText {
		sOpts = append(sOpts, traceroute.WithStart(printer.start), traceroute.WithReporter(printer.hop))
	}
	s := traceroute.NewSession(newProber(cfg.Retry), cfg.Traceroute, sOpts...)

	k := kestrel.New(cfg, cmd.Root().Version)
	if err = k.Register(s.Collectors()...); err != nil {
		return err
	}

	var res traceroute.Result
	err = k.Run(ctx, func(ctx context.Context) (err error) {
		res, err = s.Run(ctx, args[0])
		return err
	})
	if err != nil && !interrupted(err) {
		return sessionError(err)
	}
	if !res.Address.IsValid() {
		return nil
	}

	if cfg.Output == config.OutputText {
		return nil
	}
	return encode(out, cfg.Output, res)
}
