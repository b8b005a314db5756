package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"whorl/internal/api"
	"whorl/internal/config"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var serverURL string
	var asJSON bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "submit <file.json>",
		Short: "Send a fingerprint submission to the running daemon",
		Long:  "Reads a fingerprint submission from a JSON file (or stdin with '-') and posts it to the daemon's identify endpoint.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readSubmission(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			target, err := resolveSubmitURL(serverURL, ctx.configValue())
			if err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, target, bytes.NewReader(payload))
			if err != nil {
				return fmt.Errorf("build request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")

			client := &http.Client{Timeout: timeout}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("submit to %s: %w", target, err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return fmt.Errorf("read response: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				return submitError(resp.StatusCode, body)
			}

			var result api.IdentifyResponse
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			if asJSON {
				return writeJSON(cmd, result)
			}

			stdout := cmd.OutOrStdout()
			if result.IsNewVisitor {
				fmt.Fprintf(stdout, "New visitor %s (confidence %.2f)\n", result.VisitorID, result.Confidence)
			} else {
				fmt.Fprintf(stdout, "Matched visitor %s via %s (confidence %.2f)\n", result.VisitorID, result.MatchType, result.Confidence)
			}
			fmt.Fprintf(stdout, "Visits: %d\n", result.Visitor.VisitCount)
			if result.PersistentIdentity != nil && result.PersistentIdentity.ShouldUpdate {
				fmt.Fprintln(stdout, "Client token should be refreshed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "Base URL of the whorl API (default http://{server.bind})")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the full match response as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "HTTP request timeout")
	return cmd
}

func readSubmission(path string, stdin io.Reader) ([]byte, error) {
	var payload []byte
	var err error
	if path == "-" {
		payload, err = io.ReadAll(stdin)
	} else {
		payload, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read submission: %w", err)
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("submission %s is not valid JSON", path)
	}
	return payload, nil
}

func resolveSubmitURL(override string, cfg *config.Config) (string, error) {
	base := strings.TrimSpace(override)
	if base == "" {
		if cfg == nil || strings.TrimSpace(cfg.Server.Bind) == "" {
			return "", fmt.Errorf("no API address configured; set server.bind or pass --server")
		}
		base = cfg.Server.Bind
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return strings.TrimRight(base, "/") + "/api/identify", nil
}

func submitError(status int, body []byte) error {
	var apiErr api.ErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		if len(apiErr.Fields) > 0 {
			return fmt.Errorf("submission rejected (%d): %s (fields: %s)", status, apiErr.Error, strings.Join(apiErr.Fields, ", "))
		}
		return fmt.Errorf("submission rejected (%d): %s", status, apiErr.Error)
	}
	return fmt.Errorf("submission failed with status %d", status)
}
