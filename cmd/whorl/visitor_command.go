package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"whorl/internal/ipc"
	"whorl/internal/visitors"
)

func newVisitorCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "visitor <id>",
		Short: "Show one visitor's profile and recent visits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.VisitorDescribe(id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Visitor)
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				visitor := resp.Visitor

				for _, line := range renderSectionHeader("Visitor "+visitor.ID, colorize) {
					fmt.Fprintln(stdout, line)
				}
				trustDetail := fmt.Sprintf("%s (crowd score %.2f)", visitor.TrustLevel, visitor.CrowdScore)
				fmt.Fprintln(stdout, renderStatusLine("Trust", trustKind(visitor.TrustLevel), trustDetail, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Visits", statusInfo, strconv.Itoa(visitor.VisitCount), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Fingerprints", statusInfo, strconv.Itoa(visitor.FingerprintCount), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Unique IPs", statusInfo, strconv.Itoa(visitor.UniqueIPs), colorize))
				if visitor.CreatedAt != "" {
					fmt.Fprintln(stdout, renderStatusLine("First seen", statusInfo, visitor.CreatedAt, colorize))
				}
				if visitor.LastVisit != "" {
					fmt.Fprintln(stdout, renderStatusLine("Last visit", statusInfo, visitor.LastVisit, colorize))
				}

				if len(visitor.RecentVisits) == 0 {
					return nil
				}
				fmt.Fprintln(stdout)
				for _, line := range renderSectionHeader("Recent Visits", colorize) {
					fmt.Fprintln(stdout, line)
				}
				rows := make([][]string, 0, len(visitor.RecentVisits))
				for _, visit := range visitor.RecentVisits {
					rows = append(rows, []string{visit.Timestamp, visit.IPAddress, visit.Browser})
				}
				fmt.Fprintln(stdout, renderTable([]string{"Time", "IP", "Browser"}, rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the visitor record as JSON")
	return cmd
}

func trustKind(level string) statusKind {
	switch visitors.TrustLevel(level) {
	case visitors.TrustVerified, visitors.TrustTrusted:
		return statusOK
	case visitors.TrustReturning:
		return statusInfo
	default:
		return statusWarn
	}
}
