package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"spyglass/internal/api"
	"spyglass/internal/apiclient"
	"spyglass/internal/daemon"
	"spyglass/internal/taskstore"
)

func newPlatformsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List platforms the daemon accepts tasks for",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				names, err := client.Platforms(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.PlatformsResponse{Platforms: names})
				}
				out := cmd.OutOrStdout()
				if len(names) == 0 {
					fmt.Fprintln(out, "No platforms configured")
					return nil
				}
				fmt.Fprintln(out, "Supported platforms:")
				for _, name := range names {
					fmt.Fprintf(out, "  - %s\n", name)
				}
				return nil
			})
		},
	}
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon-status",
		Short: "Show daemon runtime information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, status)
				}
				printDaemonStatus(cmd, status)
				return nil
			})
		},
	}
}

func printDaemonStatus(cmd *cobra.Command, status api.StatusResponse) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	fmt.Fprintf(out, "Spyglass daemon v%s\n", status.Version)
	write := func(label, value string) {
		fmt.Fprintf(out, "  %-12s %s\n", label+":", value)
	}
	write("Queue mode", status.Mode)

	started := formatStamp(status.StartedAt)
	if status.UptimeSeconds > 0 {
		started += fmt.Sprintf("  (up %s)", formatDuration(time.Duration(status.UptimeSeconds)*time.Second))
	}
	write("Started", started)

	store := status.Store.Driver
	if status.Store.Reachable {
		store += fmt.Sprintf(" (reachable, %d tasks)", status.Store.TotalTasks)
	} else {
		detail := status.Store.Error
		if detail == "" {
			detail = "unreachable"
		}
		store += " (" + detail + ")"
		if colorize {
			store = ansiRed + store + ansiReset
		}
	}
	write("Store", store)

	rows := make([][]string, 0, len(taskstore.AllStatuses())+1)
	total := 0
	for _, st := range taskstore.AllStatuses() {
		count := status.Queue[string(st)]
		total += count
		rows = append(rows, []string{
			colorizeStatus(string(st), colorize),
			strconv.Itoa(count),
		})
	}
	rows = append(rows, []string{"total", strconv.Itoa(total)})
	fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, 2))

	if len(status.Platforms) > 0 {
		fmt.Fprint(out, "Platforms:")
		for _, name := range status.Platforms {
			fmt.Fprintf(out, " %s", name)
		}
		fmt.Fprintln(out)
	}
}

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the spyglass version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]string{"version": daemon.Version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "spyglass %s\n", daemon.Version)
			return nil
		},
	}
}

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var dev bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the spyglass daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemon.Run(cmd.Context(), cfg, daemon.Options{
				LogLevel:    logLevel,
				Development: dev,
			})
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	cmd.Flags().BoolVar(&dev, "dev", false, "Run self-contained with an in-memory store and local queue")
	return cmd
}
