package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"whorl/internal/api"
	"whorl/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and visitor totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			socket := ctx.socketPath()
			client, err := ipc.Dial(socket)
			if err != nil {
				if !isDaemonDown(err) {
					return wrapDialError(err, socket)
				}
				return renderStoppedStatus(cmd, ctx, socket, asJSON, colorize)
			}
			defer client.Close()

			status, err := client.Status()
			if err != nil {
				return fmt.Errorf("query status: %w", err)
			}
			if asJSON {
				return writeJSON(cmd, status)
			}

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			whorlLine := renderStatusLine("Whorl", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize)
			if !status.Running {
				whorlLine = renderStatusLine("Whorl", statusWarn, fmt.Sprintf("Process up, daemon not started (pid %d)", status.PID), colorize)
			}
			fmt.Fprintln(stdout, whorlLine)
			fmt.Fprintln(stdout, apiStatusLine(status.Bind, colorize))
			fmt.Fprintln(stdout, databaseStatusLine(client, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, socket, colorize))
			if status.StartedAt != "" {
				fmt.Fprintln(stdout, renderStatusLine("Started", statusInfo, status.StartedAt, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Totals", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := [][]string{
				{"Visitors", strconv.FormatInt(status.Totals.Visitors, 10)},
				{"Fingerprints", strconv.FormatInt(status.Totals.Fingerprints, 10)},
				{"Sessions", strconv.FormatInt(status.Totals.Sessions, 10)},
			}
			fmt.Fprintln(stdout, renderTable([]string{"Metric", "Count"}, rows, 1))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit status as JSON")
	return cmd
}

func renderStoppedStatus(cmd *cobra.Command, ctx *commandContext, socket string, asJSON, colorize bool) error {
	status := api.DaemonStatus{Running: false, SocketPath: socket}
	if cfg := ctx.configValue(); cfg != nil {
		status.DatabasePath = cfg.DatabasePath()
	}
	if asJSON {
		return writeJSON(cmd, status)
	}

	stdout := cmd.OutOrStdout()
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout, renderStatusLine("Whorl", statusError, "Not running", colorize))
	fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, socket, colorize))
	if status.DatabasePath != "" {
		fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
	}
	return nil
}

func apiStatusLine(bind string, colorize bool) string {
	if strings.TrimSpace(bind) == "" {
		return renderStatusLine("API", statusWarn, "Disabled (no bind address)", colorize)
	}
	return renderStatusLine("API", statusOK, fmt.Sprintf("Listening on %s", bind), colorize)
}

func databaseStatusLine(client *ipc.Client, colorize bool) string {
	health, err := client.Health()
	if err != nil {
		return renderStatusLine("Database", statusWarn, fmt.Sprintf("Health check failed: %v", err), colorize)
	}
	if health.Status == api.HealthOK {
		return renderStatusLine("Database", statusOK, health.Database.Path, colorize)
	}
	detail := strings.TrimSpace(health.Database.Error)
	if detail == "" {
		detail = "Degraded"
	}
	return renderStatusLine("Database", statusWarn, detail, colorize)
}
