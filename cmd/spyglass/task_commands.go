package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"spyglass/internal/api"
	"spyglass/internal/apiclient"
	"spyglass/internal/taskstore"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var deep bool
	var wait bool

	cmd := &cobra.Command{
		Use:   "submit <platform> <identifier>",
		Short: "Submit a profile for analysis",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				depth := ""
				if deep {
					depth = string(taskstore.DepthDeep)
				}
				task, err := client.SubmitTask(cmd.Context(), args[0], args[1], depth)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if !ctx.jsonOutput() {
					fmt.Fprintf(out, "Task %d accepted (%s/%s, %s depth)\n",
						task.ID, task.Platform, task.Identifier, task.Depth)
				}
				if !wait {
					if ctx.jsonOutput() {
						return writeJSON(cmd, api.TaskResponse{Task: task})
					}
					fmt.Fprintf(out, "Track it with `spyglass status %d`\n", task.ID)
					return nil
				}

				final, err := watchTask(cmd, ctx, client, task.ID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.TaskResponse{Task: final})
				}
				return printTaskOutcome(cmd, final)
			})
		},
	}

	cmd.Flags().BoolVar(&deep, "deep", false, "Request a deep analysis (linked profiles, more posts)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the task finishes")
	return cmd
}

// watchTask polls the task and prints progress transitions until it
// reaches a terminal status.
func watchTask(cmd *cobra.Command, ctx *commandContext, client *apiclient.Client, id int64) (api.Task, error) {
	out := cmd.OutOrStdout()
	lastProgress := -1
	lastMessage := ""
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		task, err := client.Task(cmd.Context(), id)
		if err != nil {
			return api.Task{}, err
		}
		if !ctx.jsonOutput() && (task.Progress != lastProgress || task.ProgressMessage != lastMessage) {
			fmt.Fprintf(out, "  %3d%%  %s\n", task.Progress, task.ProgressMessage)
			lastProgress = task.Progress
			lastMessage = task.ProgressMessage
		}
		if status, ok := taskstore.ParseStatus(task.Status); ok && status.IsTerminal() {
			return task, nil
		}
		select {
		case <-cmd.Context().Done():
			return api.Task{}, cmd.Context().Err()
		case <-ticker.C:
		}
	}
}

func printTaskOutcome(cmd *cobra.Command, task api.Task) error {
	out := cmd.OutOrStdout()
	switch task.Status {
	case string(taskstore.StatusCompleted):
		line := fmt.Sprintf("Task %d completed", task.ID)
		if elapsed := taskElapsed(task); elapsed != "" {
			line += fmt.Sprintf(" in %s", elapsed)
		}
		fmt.Fprintln(out, line)
		fmt.Fprintf(out, "Fetch the analysis with `spyglass result %d`\n", task.ID)
		return nil
	case string(taskstore.StatusCancelled):
		fmt.Fprintf(out, "Task %d was cancelled\n", task.ID)
		return nil
	default:
		detail := task.ErrorDetail
		if detail == "" {
			detail = "unknown error"
		}
		return fmt.Errorf("task %d failed: %s", task.ID, detail)
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show the status of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				task, err := client.Task(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.TaskResponse{Task: task})
				}
				printTaskDetail(cmd.OutOrStdout(), task, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}
}

func newResultCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "result <id>",
		Short: "Fetch the analysis result of a completed task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				raw, err := client.TaskResult(cmd.Context(), id)
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err := json.Indent(&buf, raw, "", "  "); err != nil {
					buf.Write(raw)
				}
				buf.WriteByte('\n')
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			})
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a pending or processing task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.Cancel(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				if resp.Cancelled {
					fmt.Fprintf(cmd.OutOrStdout(), "Task %d cancelled\n", id)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Task %d was already cancelled\n", id)
				}
				return nil
			})
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Re-queue a failed task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				task, err := client.Retry(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.TaskResponse{Task: task})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task %d re-queued (%s)\n", task.ID, task.Status)
				return nil
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var platform string
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List analysis tasks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.List(cmd.Context(), apiclient.ListOptions{
					Statuses: statuses,
					Platform: strings.TrimSpace(platform),
					Limit:    limit,
					Offset:   offset,
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Tasks) == 0 {
					fmt.Fprintln(out, "No tasks found")
					return nil
				}
				rows := buildTaskRows(resp.Tasks, shouldColorize(out))
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Platform", "Identifier", "Depth", "Status", "Progress", "Age"},
					rows, 1, 6,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by task status (repeatable)")
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "Filter by platform")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of tasks to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of tasks to skip")
	return cmd
}
