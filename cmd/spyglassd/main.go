// Command spyglassd runs the spyglass daemon: the task store, the
// dispatcher, and the HTTP API, in the foreground until SIGINT or
// SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"spyglass/internal/config"
	"spyglass/internal/daemon"
)

func newRootCommand() *cobra.Command {
	var configPath string
	var logLevel string
	var dev bool

	cmd := &cobra.Command{
		Use:           "spyglassd",
		Short:         "Spyglass profile analysis daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemon.Run(cmd.Context(), cfg, daemon.Options{
				LogLevel:    logLevel,
				Development: dev,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	cmd.Flags().BoolVar(&dev, "dev", false, "Run self-contained with an in-memory store and local queue")
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
