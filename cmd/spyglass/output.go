package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// apiTimeFormat matches the timestamp layout the daemon API emits.
const apiTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func colorizeStatus(status string, colorize bool) string {
	if !colorize {
		return status
	}
	var color string
	switch status {
	case "pending":
		color = ansiBlue
	case "processing":
		color = ansiYellow
	case "completed":
		color = ansiGreen
	case "failed":
		color = ansiRed
	default:
		return status
	}
	return color + status + ansiReset
}

// formatStamp renders an API timestamp in local time, "-" when unset.
func formatStamp(stamp string) string {
	if stamp == "" {
		return "-"
	}
	parsed, err := time.Parse(apiTimeFormat, stamp)
	if err != nil {
		return stamp
	}
	return parsed.Local().Format("2006-01-02 15:04:05")
}

// formatAge renders the elapsed time since an API timestamp, "-" when
// unset or unparsable.
func formatAge(stamp string) string {
	if stamp == "" {
		return "-"
	}
	parsed, err := time.Parse(apiTimeFormat, stamp)
	if err != nil {
		return "-"
	}
	age := time.Since(parsed)
	if age < 0 {
		age = 0
	}
	return formatDuration(age)
}

func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	switch {
	case d >= 24*time.Hour:
		days := d / (24 * time.Hour)
		hours := (d % (24 * time.Hour)) / time.Hour
		return fmt.Sprintf("%dd%dh", days, hours)
	case d >= time.Hour:
		return fmt.Sprintf("%dh%dm", d/time.Hour, (d%time.Hour)/time.Minute)
	case d >= time.Minute:
		return fmt.Sprintf("%dm%ds", d/time.Minute, (d%time.Minute)/time.Second)
	default:
		return fmt.Sprintf("%ds", d/time.Second)
	}
}
