// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/telekom/kestrel/internal/logger"
	"github.com/telekom/kestrel/pkg/config"
)

// NewCmdRoot creates a new root command
func NewCmdRoot(version string) *cobra.Command {
	var (
		cfgFile string
		debug   bool
	)

	rootCmd := &cobra.Command{
		Use:   "kestrel",
		Short: "Kestrel, the ICMP reachability prober",
		Long: "Kestrel sends ICMP echo requests to measure the reachability and latency of a host\n" +
			"and discovers the network path towards it by limiting the time-to-live of its probes.\n" +
			"Raw ICMP sockets require root privileges or the CAP_NET_RAW capability.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if debug {
				_ = os.Setenv("LOG_LEVEL", "DEBUG")
			}
			return initConfig(cfgFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.kestrel.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "D", false, "log at debug level to stderr")
	rootCmd.PersistentFlags().StringP("output", "o", string(config.OutputText), "output format, one of text, json or yaml")
	rootCmd.PersistentFlags().String("metrics-address", "", "serve prometheus metrics on this address while probing, e.g. :9090")

	bindFlags(rootCmd, map[string]string{
		"output":          "output",
		"metrics-address": "api.address",
	}, true)

	return rootCmd
}

// Execute adds all child commands to the root command
// and executes the cmd tree
func Execute(version string) {
	cmd := BuildCmd(version)

	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "kestrel:", err)
		os.Exit(1)
	}
}

// BuildCmd creates the root command with the ping and traceroute subcommands
func BuildCmd(version string) *cobra.Command {
	cmd := NewCmdRoot(version)
	cmd.AddCommand(NewCmdPing())
	cmd.AddCommand(NewCmdTraceroute())
	return cmd
}

// bindFlags binds the named flags of cmd to their configuration keys.
func bindFlags(cmd *cobra.Command, keys map[string]string, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	for flag, key := range keys {
		cobra.CheckErr(viper.BindPFlag(key, flags.Lookup(flag)))
	}
}

// initConfig points viper at the config file and the KESTREL_ environment.
// A missing default config file is not an error.
func initConfig(cfgFile string) error {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to find home directory: %w", err)
		}

		// Search config in home directory with name ".kestrel" (without an extension)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".kestrel")
	}

	viper.SetOptions(viper.ExperimentalBindStruct())
	viper.SetEnvPrefix("kestrel")
	dotreplacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(dotreplacer)
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		logger.NewLogger().Debug("Using config file", "path", viper.ConfigFileUsed())
	case cfgFile == "" && errors.As(err, &notFound):
		// defaults, environment and flags only
	default:
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}
