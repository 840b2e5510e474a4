package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"spyglass/internal/api"
)

func printTaskDetail(out io.Writer, task api.Task, colorize bool) {
	fmt.Fprintf(out, "Task %d\n", task.ID)
	write := func(label, value string) {
		fmt.Fprintf(out, "  %-12s %s\n", label+":", value)
	}

	write("Platform", task.Platform)
	write("Identifier", task.Identifier)
	write("Depth", task.Depth)
	write("Status", colorizeStatus(task.Status, colorize))

	progress := fmt.Sprintf("%d%%", task.Progress)
	if task.ProgressMessage != "" {
		progress += "  " + task.ProgressMessage
	}
	write("Progress", progress)

	write("Created", formatStamp(task.CreatedAt))
	if task.StartedAt != "" {
		write("Started", formatStamp(task.StartedAt))
	}
	if task.CompletedAt != "" {
		finished := formatStamp(task.CompletedAt)
		if elapsed := taskElapsed(task); elapsed != "" {
			finished += fmt.Sprintf("  (took %s)", elapsed)
		}
		write("Finished", finished)
	}
	if task.ErrorDetail != "" {
		write("Error", task.ErrorDetail)
	}
	if task.Status == "completed" {
		write("Result", fmt.Sprintf("spyglass result %d", task.ID))
	}
	if task.RequestID != "" {
		write("Request", task.RequestID)
	}
}

func buildTaskRows(tasks []api.Task, colorize bool) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		rows = append(rows, []string{
			strconv.FormatInt(task.ID, 10),
			task.Platform,
			task.Identifier,
			task.Depth,
			colorizeStatus(task.Status, colorize),
			fmt.Sprintf("%d%%", task.Progress),
			formatAge(task.CreatedAt),
		})
	}
	return rows
}

// taskElapsed reports how long a finished task ran, empty when the
// timestamps are absent or inconsistent.
func taskElapsed(task api.Task) string {
	if task.StartedAt == "" || task.CompletedAt == "" {
		return ""
	}
	start, err := time.Parse(apiTimeFormat, task.StartedAt)
	if err != nil {
		return ""
	}
	end, err := time.Parse(apiTimeFormat, task.CompletedAt)
	if err != nil || end.Before(start) {
		return ""
	}
	return formatDuration(end.Sub(start))
}
