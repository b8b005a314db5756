package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"whorl/internal/ipc"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var days int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show daily identification statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stats(days)
				if err != nil {
					return fmt.Errorf("query stats: %w", err)
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				if len(resp.Rows) == 0 {
					fmt.Fprintf(stdout, "No visits recorded in the last %d days\n", resp.Days)
					return nil
				}

				rows := make([][]string, 0, len(resp.Rows))
				for _, day := range resp.Rows {
					rows = append(rows, []string{
						day.Date,
						strconv.Itoa(day.Total),
						strconv.Itoa(day.UniqueVisitors),
						strconv.Itoa(day.NewVisitors),
						strconv.Itoa(day.ExactMatches),
						strconv.Itoa(day.StableMatches),
						strconv.Itoa(day.GPUMatches),
						strconv.Itoa(day.FuzzyStableMatches),
						strconv.Itoa(day.FuzzyMatches),
						fmt.Sprintf("%.2f", day.AvgEntropy),
					})
				}
				headers := []string{"Date", "Visits", "Unique", "New", "Exact", "Stable", "GPU", "FzStable", "Fuzzy", "Entropy"}
				fmt.Fprintln(stdout, renderTable(headers, rows, 1, 2, 3, 4, 5, 6, 7, 8, 9))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Number of days to include (default 7, max 90)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit stats as JSON")
	return cmd
}
